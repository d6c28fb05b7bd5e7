package fga

// DemoAuthorizationModel returns the authorization model document written
// to the engine during bootstrap. Documents do not inherit viewer from
// their knowledge base: document access is granted tuple by tuple, which
// is what lets a single document inside an accessible KB stay denied.
func DemoAuthorizationModel() map[string]interface{} {
	direct := func(types ...string) map[string]interface{} {
		related := make([]map[string]interface{}, 0, len(types))
		for _, t := range types {
			related = append(related, map[string]interface{}{"type": t})
		}
		return map[string]interface{}{"directly_related_user_types": related}
	}
	this := map[string]interface{}{"this": map[string]interface{}{}}
	union := func(relations ...string) map[string]interface{} {
		children := make([]map[string]interface{}, 0, len(relations)+1)
		children = append(children, this)
		for _, r := range relations {
			children = append(children, map[string]interface{}{
				"computedUserset": map[string]interface{}{"relation": r},
			})
		}
		return map[string]interface{}{"union": map[string]interface{}{"child": children}}
	}

	return map[string]interface{}{
		"schema_version": "1.1",
		"type_definitions": []map[string]interface{}{
			{"type": "user"},
			{
				"type": "organization",
				"relations": map[string]interface{}{
					"member": this,
				},
				"metadata": map[string]interface{}{
					"relations": map[string]interface{}{
						"member": direct("user"),
					},
				},
			},
			{
				"type": "knowledge_base",
				"relations": map[string]interface{}{
					"organization": this,
					"curator":      this,
					"viewer":       union("curator"),
				},
				"metadata": map[string]interface{}{
					"relations": map[string]interface{}{
						"organization": direct("organization"),
						"curator":      direct("user"),
						"viewer":       direct("user"),
					},
				},
			},
			{
				"type": "document",
				"relations": map[string]interface{}{
					"parent": this,
					"owner":  this,
					"viewer": union("owner"),
				},
				"metadata": map[string]interface{}{
					"relations": map[string]interface{}{
						"parent": direct("knowledge_base"),
						"owner":  direct("user"),
						"viewer": direct("user"),
					},
				},
			},
			{
				"type": "ai_model",
				"relations": map[string]interface{}{
					"user": this,
				},
				"metadata": map[string]interface{}{
					"relations": map[string]interface{}{
						"user": direct("user"),
					},
				},
			},
			{
				"type": "chat_session",
				"relations": map[string]interface{}{
					"organization": this,
					"owner":        this,
					"viewer":       union("owner"),
				},
				"metadata": map[string]interface{}{
					"relations": map[string]interface{}{
						"organization": direct("organization"),
						"owner":        direct("user"),
						"viewer":       direct("user"),
					},
				},
			},
			{
				"type": "query",
				"relations": map[string]interface{}{
					"parent":    this,
					"requester": this,
				},
				"metadata": map[string]interface{}{
					"relations": map[string]interface{}{
						"parent":    direct("chat_session"),
						"requester": direct("user"),
					},
				},
			},
		},
	}
}
