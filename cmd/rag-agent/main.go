// Package main is the entry point for the RAG Agent Service.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	agent "github.com/kart-io/rag-agent/internal/agent"
)

func main() {
	agent.NewApp().Run()
}
