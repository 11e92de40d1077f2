package realtime

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Channel is the Postgres NOTIFY channel every streak write publishes on.
const Channel = "streak_changes"

// Listener bridges Postgres LISTEN/NOTIFY into the hub. It holds one
// dedicated connection; if that connection drops it backs off and reacquires.
type Listener struct {
	db  *pgxpool.Pool
	hub *Hub
}

func NewListener(db *pgxpool.Pool, hub *Hub) *Listener {
	return &Listener{db: db, hub: hub}
}

// Run blocks until ctx is cancelled. Call it in its own goroutine.
func (l *Listener) Run(ctx context.Context) {
	backoff := time.Second
	for {
		if err := l.listen(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("Realtime listener disconnected: %v (retrying in %s)", err, backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		return
	}
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := l.db.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+Channel); err != nil {
		return err
	}

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}

		var ev Event
		if err := json.Unmarshal([]byte(notification.Payload), &ev); err != nil {
			log.Printf("Realtime listener: bad payload %q: %v", notification.Payload, err)
			continue
		}
		l.hub.Publish(ev)
	}
}
