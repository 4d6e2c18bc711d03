// Package events carries conversation change notifications from the
// components that modify a conversation to the components that react to it.
//
// Emitters publish a ConversationEvent after a turn is appended or a model
// is selected; handlers such as the snapshot persister decide what to do
// with it. Neither side knows the other.
package events
