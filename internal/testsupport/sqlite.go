// Package testsupport wires in-memory storage and recording collaborators for
// service tests.
package testsupport

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/menuya/internal/changefeed"
	"github.com/smallbiznis/menuya/internal/migration"
	"github.com/smallbiznis/menuya/internal/notification"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// OpenDB opens a private in-memory database with the full schema. A single
// connection serializes access the way row locks would.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d_%d?mode=memory&cache=shared", time.Now().UnixNano(), dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, migration.AutoMigrate(db))
	return db
}

func Node(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return node
}

// Notifier records every message sent.
type Notifier struct {
	mu       sync.Mutex
	messages []notification.Message
}

func (n *Notifier) SendToRole(_ context.Context, msg notification.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
}

func (n *Notifier) Messages() []notification.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notification.Message, len(n.messages))
	copy(out, n.messages)
	return out
}

// ForRole returns the messages addressed to role.
func (n *Notifier) ForRole(role string) []notification.Message {
	var out []notification.Message
	for _, msg := range n.Messages() {
		if msg.Role == role {
			out = append(out, msg)
		}
	}
	return out
}

// Publisher records every change event published.
type Publisher struct {
	mu     sync.Mutex
	events []changefeed.Event
}

func (p *Publisher) Publish(_ context.Context, evt changefeed.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
}

func (p *Publisher) Events(table string) []changefeed.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []changefeed.Event
	for _, evt := range p.events {
		if evt.Table == table {
			out = append(out, evt)
		}
	}
	return out
}
