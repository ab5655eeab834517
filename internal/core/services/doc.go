// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// IndexService embeds chunks and moves indexes to and from storage.
// KnowledgeManager decides per scope whether to build, merge or load an
// index. ConversationService answers questions from an index without
// holding state. KnowledgeService ties them together for the driving
// adapters.
package services
