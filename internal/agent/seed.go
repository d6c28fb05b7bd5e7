package app

import (
	"context"
	"fmt"

	"github.com/kart-io/logger"

	"github.com/kart-io/rag-agent/internal/agent/biz"
	"github.com/kart-io/rag-agent/internal/model"
	"github.com/kart-io/rag-agent/pkg/authz/fga"
)

// Demo principals. alice can read kb_demo except doc_demo_1; bob has no
// knowledge base access at all.
const (
	seedOrg   = "org_demo"
	seedAdmin = "admin"
)

// seedDemoData loads the demo corpus and its relationship tuples. Seeding
// is two-phase and synchronous: resources first, tuples second, both
// completed before the service starts accepting requests.
func seedDemoData(ctx context.Context, dataStore biz.DataStore, authz biz.AuthzClient) error {
	// Phase 1: resources.
	kbs := []struct {
		id, name, description string
	}{
		{"kb_demo", "Demo Knowledge Base", "Public demo articles about this system."},
		{"kb_private", "Private Knowledge Base", "Restricted internal material."},
	}
	for _, kb := range kbs {
		if _, err := dataStore.CreateKnowledgeBase(ctx, kb.id, kb.name, kb.description, seedOrg); err != nil {
			return fmt.Errorf("seed knowledge base %s: %w", kb.id, err)
		}
	}

	docs := []struct {
		id, kb, title, content string
		metadata               map[string]string
	}{
		{
			"doc_demo_1", "kb_demo", "Relationship-Based Access Control",
			"OpenFGA models permissions as relationship tuples between users and resources. " +
				"A check asks whether a user holds a relation on an object, resolved through the authorization model.",
			map[string]string{"category": "demo", "topic": "authz"},
		},
		{
			"doc_demo_2", "kb_demo", "Retrieval-Augmented Generation",
			"RAG systems retrieve relevant documents before generating an answer, grounding the model in source material. " +
				"Interleaving permission checks with retrieval keeps unauthorized content out of the context window.",
			map[string]string{"category": "demo", "topic": "rag"},
		},
		{
			"doc_demo_3", "kb_demo", "Defense in Depth for AI Agents",
			"Checking access once at the session boundary is not enough. Each knowledge base and each retrieved document " +
				"is verified independently, so revoking a single tuple takes effect on the very next query.",
			map[string]string{"category": "demo", "topic": "authz"},
		},
		{
			"doc_private_1", "kb_private", "Internal Roadmap",
			"Confidential planning document for the next two quarters.",
			map[string]string{"category": "internal"},
		},
	}
	for _, d := range docs {
		if _, err := dataStore.UploadDocument(ctx, d.id, d.kb, d.title, d.content, d.metadata, seedAdmin); err != nil {
			return fmt.Errorf("seed document %s: %w", d.id, err)
		}
	}

	models := []*model.AIModel{
		{ID: "gpt-demo", Name: "GPT Demo", Provider: "openai", Description: "Demo chat model."},
		{ID: "claude-demo", Name: "Claude Demo", Provider: "anthropic", Description: "Demo chat model."},
	}
	for _, m := range models {
		if err := dataStore.RegisterModel(ctx, m); err != nil {
			return fmt.Errorf("seed model %s: %w", m.ID, err)
		}
	}

	// Phase 2: relationship tuples. alice's viewer grants skip doc_demo_1
	// on purpose: document access does not inherit from the knowledge
	// base, so the omission is an effective denial.
	orgObj := fga.Object(fga.TypeOrganization, seedOrg)
	tuples := []fga.Tuple{
		{User: fga.User("alice"), Relation: "member", Object: orgObj},
		{User: fga.User("bob"), Relation: "member", Object: orgObj},
		{User: fga.User(seedAdmin), Relation: "member", Object: orgObj},

		{User: fga.User(seedAdmin), Relation: fga.RelationCurator, Object: fga.Object(fga.TypeKnowledgeBase, "kb_demo")},
		{User: fga.User(seedAdmin), Relation: fga.RelationCurator, Object: fga.Object(fga.TypeKnowledgeBase, "kb_private")},

		{User: fga.User("alice"), Relation: fga.RelationViewer, Object: fga.Object(fga.TypeKnowledgeBase, "kb_demo")},
		{User: fga.User("alice"), Relation: fga.RelationViewer, Object: fga.Object(fga.TypeDocument, "doc_demo_2")},
		{User: fga.User("alice"), Relation: fga.RelationViewer, Object: fga.Object(fga.TypeDocument, "doc_demo_3")},
	}
	for _, d := range docs {
		docObj := fga.Object(fga.TypeDocument, d.id)
		tuples = append(tuples,
			fga.Tuple{User: fga.User(seedAdmin), Relation: fga.RelationOwner, Object: docObj},
			fga.Tuple{User: fga.Object(fga.TypeKnowledgeBase, d.kb), Relation: fga.RelationParent, Object: docObj},
		)
	}
	for _, m := range models {
		modelObj := fga.Object(fga.TypeAIModel, m.ID)
		tuples = append(tuples,
			fga.Tuple{User: fga.User("alice"), Relation: fga.RelationUser, Object: modelObj},
			fga.Tuple{User: fga.User("bob"), Relation: fga.RelationUser, Object: modelObj},
			fga.Tuple{User: fga.User(seedAdmin), Relation: fga.RelationUser, Object: modelObj},
		)
	}

	if !authz.WriteTuples(ctx, tuples) {
		logger.Warnw("demo tuples not written; checks will be permissive until the engine is configured")
	}
	return nil
}
