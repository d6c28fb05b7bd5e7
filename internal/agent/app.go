package app

import (
	"github.com/kart-io/rag-agent/pkg/infra/app"
)

const (
	appName        = "rag-agent"
	appDescription = `RAG Agent Service

A retrieval-augmented chat agent with relationship-based access control.

Every stage of retrieval is an authorization checkpoint: the knowledge
bases in a chat session and every document pulled from them are checked
against an OpenFGA-compatible engine before they can influence an answer.`
)

// NewApp creates the application instance.
func NewApp() *app.App {
	opts := NewOptions()

	return app.NewApp(
		app.WithName(appName),
		app.WithDescription(appDescription),
		app.WithOptions(opts),
		app.WithRunFunc(func() error {
			return Run(opts)
		}),
	)
}
