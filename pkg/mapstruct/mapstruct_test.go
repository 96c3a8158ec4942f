package mapstruct_test

import (
	"testing"
	"time"

	"github.com/omalloc/relay/pkg/mapstruct"
)

func TestDecode_SuccessAndNested(t *testing.T) {
	type Listen struct {
		Addr        string        `json:"addr"`
		IdleTimeout time.Duration `json:"idle_timeout"`
	}
	type Conf struct {
		Hostname string `json:"hostname"`
		Listen   Listen `json:"listen"`
	}

	input := map[string]interface{}{
		"hostname": "edge-1",
		"listen": map[string]interface{}{
			"addr":         ":8080",
			"idle_timeout": "30s",
		},
	}

	var c Conf
	if err := mapstruct.Decode(input, &c); err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}

	if c.Hostname != "edge-1" {
		t.Fatalf("expected Hostname == %q, got %q", "edge-1", c.Hostname)
	}
	if c.Listen.Addr != ":8080" {
		t.Fatalf("unexpected Listen.Addr: %q", c.Listen.Addr)
	}
	if c.Listen.IdleTimeout != 30*time.Second {
		t.Fatalf("expected IdleTimeout == 30s, got %v", c.Listen.IdleTimeout)
	}
}

func TestDecode_Slice(t *testing.T) {
	type Item struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}

	input := []map[string]interface{}{
		{"id": 1, "name": "one"},
		{"id": 2, "name": "two"},
	}

	var items []Item
	if err := mapstruct.Decode(input, &items); err != nil {
		t.Fatalf("Decode slice returned error: %v", err)
	}

	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].ID != 1 || items[0].Name != "one" {
		t.Fatalf("unexpected first item: %+v", items[0])
	}
	if items[1].ID != 2 || items[1].Name != "two" {
		t.Fatalf("unexpected second item: %+v", items[1])
	}
}

func TestDecode_NonPointerOutputReturnsError(t *testing.T) {
	type Simple struct {
		Value string `json:"value"`
	}

	input := map[string]interface{}{"value": "x"}

	var s Simple
	// pass non-pointer output on purpose
	err := mapstruct.Decode(input, s)
	if err == nil {
		t.Fatalf("expected error when output is non-pointer, got nil")
	}
}
