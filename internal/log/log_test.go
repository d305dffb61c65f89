package log_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	applog "synergyfoods/internal/log"
)

type line struct {
	Level  string         `json:"level"`
	Action string         `json:"action"`
	Kind   string         `json:"kind"`
	ReqID  string         `json:"req_id"`
	Path   string         `json:"path"`
	Err    string         `json:"err"`
	Fields map[string]any `json:"fields"`
}

func TestRequestScopedEntries(t *testing.T) {
	var buf bytes.Buffer
	applog.SetOutput(&buf)
	defer applog.SetOutput(&bytes.Buffer{})

	app := fiber.New()
	app.Use(requestid.New())
	app.Get("/x", func(c *fiber.Ctx) error {
		applog.Audit(c, "thing.create", map[string]any{"id": "abc"})
		applog.Error(c, "thing.fail", errors.New("boom"), nil)
		applog.Security(c, "thing.denied", nil)
		return c.SendStatus(204)
	})
	if _, err := app.Test(httptest.NewRequest("GET", "/x", nil)); err != nil {
		t.Fatal(err)
	}

	var got []line
	for _, s := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var l line
		if err := json.Unmarshal([]byte(s), &l); err != nil {
			t.Fatalf("not json: %q", s)
		}
		got = append(got, l)
	}
	if len(got) != 3 {
		t.Fatalf("want 3 entries, got %d: %s", len(got), buf.String())
	}
	if got[0].Action != "thing.create" || got[0].Kind != "audit" || got[0].Fields["id"] != "abc" {
		t.Fatalf("bad audit entry: %+v", got[0])
	}
	if got[0].ReqID == "" || got[0].Path != "/x" {
		t.Fatalf("request fields missing: %+v", got[0])
	}
	if got[1].Level != "error" || got[1].Err != "boom" {
		t.Fatalf("bad error entry: %+v", got[1])
	}
	if got[2].Level != "warn" || got[2].Kind != "security" {
		t.Fatalf("bad security entry: %+v", got[2])
	}
}
