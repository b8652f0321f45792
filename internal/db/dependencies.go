package db

import (
	"context"
	"time"
)

type Client interface {
	Close() error

	EnsureUser(ctx context.Context, userID int64, username *string, firstName string) (user *User, created bool, err error)
	GetUser(ctx context.Context, userID int64) (*User, error)
	SetLanguage(ctx context.Context, userID int64, lang string) error
	GetLanguage(ctx context.Context, userID int64) (string, error)

	CreateVisit(ctx context.Context, visitorID, targetID int64) (*Visit, error)
	CreateMessage(ctx context.Context, msg *Message) (*Message, error)
	GetMessage(ctx context.Context, id int64) (*Message, error)
	MarkRevealed(ctx context.Context, id int64) (bool, error)
	GetStats(ctx context.Context, userID int64, since time.Time) (*Stats, error)

	CreateReport(ctx context.Context, report *Report) (*Report, error)
	CountUniqueReporters(ctx context.Context, senderID int64) (int, error)
	ListReportsForSender(ctx context.Context, senderID int64) ([]*SenderReport, error)

	CreateIdea(ctx context.Context, idea *Idea) (*Idea, error)

	FileAppeal(ctx context.Context, appeal *Appeal) (*Appeal, error)
	GetAppeal(ctx context.Context, id int64) (*Appeal, error)
	ListUnprocessedAppeals(ctx context.Context) ([]*Appeal, error)
	MarkAppealProcessed(ctx context.Context, id int64) (bool, error)

	UpsertBlock(ctx context.Context, block *Block) error
	DeleteBlock(ctx context.Context, userID int64) error
	GetBlock(ctx context.Context, userID int64) (*Block, error)
}
