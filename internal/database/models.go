package database

import "time"

// Message represents one captured chat message. The ID comes from the source
// feed and is the primary key; a message is written once and never mutated.
type Message struct {
	ID        string    `db:"id"`
	Content   string    `db:"content"`
	Author    string    `db:"author"`
	Timestamp time.Time `db:"timestamp"`
	ChannelID string    `db:"channel_id"`
}
