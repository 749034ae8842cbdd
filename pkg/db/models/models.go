package models

// All lists every persisted model. SQLite dev databases and repository tests
// build their schema from it; Postgres uses the goose migrations.
func All() []any {
	return []any{
		&User{},
		&Request{},
		&ChatThread{},
		&ChatMessage{},
		&PasabuyerPresence{},
		&Notification{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
