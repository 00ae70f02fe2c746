package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestTokenBucket(t *testing.T) {
	tb := NewTokenBucket(5, time.Second)
	ctx := context.Background()

	// Test initial capacity
	for i := 0; i < 5; i++ {
		if !tb.allow() {
			t.Errorf("Expected token %d to be available", i+1)
		}
	}

	// Test exhaustion
	if tb.allow() {
		t.Error("Expected no more tokens to be available")
	}

	// Test refill after waiting
	time.Sleep(time.Second + 100*time.Millisecond)
	if !tb.allow() {
		t.Error("Expected tokens to be refilled after waiting")
	}

	// Test reset
	tb.tokens = 0
	tb.Reset()
	if tb.tokens != tb.capacity {
		t.Error("Expected tokens to be reset to capacity")
	}

	// Wait should return promptly when tokens remain
	if err := tb.Wait(ctx); err != nil {
		t.Errorf("Expected Wait to succeed, got %v", err)
	}
}

func TestTokenBucketWaitCancelled(t *testing.T) {
	tb := NewTokenBucket(1, time.Hour)
	if !tb.allow() {
		t.Fatal("Expected first token to be available")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := tb.Wait(ctx); err != context.DeadlineExceeded {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}

func TestIntervalLimiter(t *testing.T) {
	il := NewIntervalLimiter(150 * time.Millisecond)
	ctx := context.Background()

	// First call passes immediately
	start := time.Now()
	if err := il.Wait(ctx); err != nil {
		t.Fatalf("Expected first Wait to succeed, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("Expected first Wait to be immediate, took %v", elapsed)
	}

	// Second call honors the gap
	start = time.Now()
	if err := il.Wait(ctx); err != nil {
		t.Fatalf("Expected second Wait to succeed, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("Expected second Wait to block for the gap, took %v", elapsed)
	}
}

func TestIntervalLimiterMarkReanchors(t *testing.T) {
	il := NewIntervalLimiter(150 * time.Millisecond)
	ctx := context.Background()

	if err := il.Wait(ctx); err != nil {
		t.Fatalf("Expected first Wait to succeed, got %v", err)
	}

	// Work happens after Wait; Mark moves the anchor to when it finished,
	// so the next Wait still enforces the full gap from the mark.
	time.Sleep(100 * time.Millisecond)
	il.Mark()

	start := time.Now()
	if err := il.Wait(ctx); err != nil {
		t.Fatalf("Expected Wait after Mark to succeed, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("Expected Wait to measure from the mark, took only %v", elapsed)
	}
}

func TestIntervalLimiterReset(t *testing.T) {
	il := NewIntervalLimiter(time.Hour)
	ctx := context.Background()

	if err := il.Wait(ctx); err != nil {
		t.Fatalf("Expected first Wait to succeed, got %v", err)
	}

	il.Reset()

	start := time.Now()
	if err := il.Wait(ctx); err != nil {
		t.Fatalf("Expected Wait after Reset to succeed, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("Expected Wait after Reset to be immediate, took %v", elapsed)
	}
}

func TestIntervalLimiterCancelled(t *testing.T) {
	il := NewIntervalLimiter(time.Hour)
	if err := il.Wait(context.Background()); err != nil {
		t.Fatalf("Expected first Wait to succeed, got %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := il.Wait(ctx); err != context.DeadlineExceeded {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}
