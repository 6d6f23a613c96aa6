package idempotency

import (
	"context"
	"fmt"
	"time"
)

func ExampleManager_Seen() {
	ctx := context.Background()
	manager, _ := NewManager(newFakeStore(), 7*24*time.Hour)

	handle := func(key string) string {
		if seen, _ := manager.Seen(ctx, "history-completed", key); seen {
			return "duplicate delivery skipped"
		}
		_ = manager.MarkProcessed(ctx, "history-completed", key)
		return "recording history event"
	}

	fmt.Println(handle("0b6f1c1e-6a3f-4c55-9b0e-8f2a41d3c001"))
	fmt.Println(handle("0b6f1c1e-6a3f-4c55-9b0e-8f2a41d3c001"))
	// Output:
	// recording history event
	// duplicate delivery skipped
}
