// Package aggregates implements the conversation write model on top of the
// table repos. A message insert, edit or delete and the matching change to the
// owning conversation's message_count and total_tokens commit together or not
// at all.
package aggregates
