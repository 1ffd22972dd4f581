package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lotas/seitenleiste/internal/host"
	"github.com/lotas/seitenleiste/internal/types"
	"nhooyr.io/websocket"
)

// fakeExtension dials srv and answers every command with handle.
func fakeExtension(t *testing.T, ctx context.Context, srv *Server, handle func(OutgoingMsg) IncomingMsg) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.CloseNow() })

	if err := srv.WaitConnected(ctx); err != nil {
		t.Fatalf("server never saw the connection: %v", err)
	}

	if handle != nil {
		go func() {
			for {
				_, data, err := conn.Read(ctx)
				if err != nil {
					return
				}
				var cmd OutgoingMsg
				if err := json.Unmarshal(data, &cmd); err != nil {
					return
				}
				resp := handle(cmd)
				resp.Type = "response"
				resp.ID = cmd.ID
				out, _ := json.Marshal(resp)
				if err := conn.Write(ctx, websocket.MessageText, out); err != nil {
					return
				}
			}
		}()
	}
	return conn
}

func okResp(m IncomingMsg) IncomingMsg {
	ok := true
	m.OK = &ok
	return m
}

func failResp(text string) IncomingMsg {
	ok := false
	return IncomingMsg{OK: &ok, Error: text}
}

func TestServerForwardsEvents(t *testing.T) {
	srv := New(0)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn := fakeExtension(t, ctx, srv, nil)

	for _, raw := range []string{
		`{"type":"tab.created","tab":{"id":5,"url":"https://a.example","pendingUrl":"https://a.example","active":true,"groupId":-1}}`,
		`{"type":"bogus"}`,
		`{"type":"tab.removed","tabId":5}`,
	} {
		if err := conn.Write(ctx, websocket.MessageText, []byte(raw)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	want := []host.Event{
		{Kind: host.TabCreated, TabID: "5", Tab: host.LiveTab{ID: "5", URL: "https://a.example", PendingURL: "https://a.example", Active: true}},
		{Kind: host.TabRemoved, TabID: "5"},
	}
	for i, w := range want {
		select {
		case ev := <-srv.Events():
			if ev != w {
				t.Errorf("event %d = %+v, want %+v", i, ev, w)
			}
		case <-ctx.Done():
			t.Fatalf("timed out waiting for event %d", i)
		}
	}
}

func TestBridgeCommands(t *testing.T) {
	srv := New(0)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	fakeExtension(t, ctx, srv, func(cmd OutgoingMsg) IncomingMsg {
		switch cmd.Action {
		case "query-tabs":
			return okResp(IncomingMsg{Tabs: json.RawMessage(`[{"id":1,"title":"One","url":"https://one.example","active":true,"groupId":3},{"id":2,"url":"https://two.example","discarded":true,"groupId":-1}]`)})
		case "create-tab":
			if cmd.URL != "https://new.example" || cmd.Active == nil || !*cmd.Active {
				return failResp("bad create")
			}
			return okResp(IncomingMsg{Tab: json.RawMessage(`{"id":10,"pendingUrl":"https://new.example","active":true}`)})
		case "activate-tab":
			if cmd.TabID == 9 {
				return failResp("No tab with id: 9.")
			}
			return okResp(IncomingMsg{})
		case "group-tabs":
			return okResp(IncomingMsg{GroupID: 77})
		case "update-group":
			if cmd.Title == nil || *cmd.Title != "Work" || cmd.Color == nil || *cmd.Color != "red" {
				return failResp("bad update")
			}
			return okResp(IncomingMsg{})
		}
		return failResp("unsupported")
	})

	tabs, err := srv.QueryTabs(ctx)
	if err != nil {
		t.Fatalf("QueryTabs: %v", err)
	}
	if len(tabs) != 2 || tabs[0].HostGroupID != "3" || tabs[1].HostGroupID != "" || !tabs[1].Discarded {
		t.Errorf("tabs = %+v", tabs)
	}

	tab, err := srv.CreateTab(ctx, "https://new.example", true)
	if err != nil || tab.ID != "10" || tab.PendingURL != "https://new.example" {
		t.Errorf("CreateTab = %+v, %v", tab, err)
	}

	if err := srv.ActivateTab(ctx, "1"); err != nil {
		t.Errorf("ActivateTab: %v", err)
	}
	if err := srv.ActivateTab(ctx, "9"); !errors.Is(err, host.ErrTabNotFound) {
		t.Errorf("ActivateTab(9) = %v, want ErrTabNotFound", err)
	}
	if err := srv.ActivateTab(ctx, "local-uuid"); !errors.Is(err, host.ErrTabNotFound) {
		t.Errorf("ActivateTab(local id) = %v, want ErrTabNotFound", err)
	}

	gid, err := srv.GroupTabs(ctx, []types.ID{"1", "2"}, "")
	if err != nil || gid != "77" {
		t.Errorf("GroupTabs = %q, %v", gid, err)
	}
	title, color := "Work", types.ColorRed
	if err := srv.UpdateGroup(ctx, gid, host.GroupUpdate{Title: &title, Color: &color}); err != nil {
		t.Errorf("UpdateGroup: %v", err)
	}
	if err := srv.RemoveTab(ctx, "1"); err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Errorf("RemoveTab = %v", err)
	}
}

func TestBridgeNotConnected(t *testing.T) {
	srv := New(0)
	_, err := srv.QueryTabs(context.Background())
	if !errors.Is(err, ErrNotLive) || !errors.Is(err, host.ErrNotConnected) {
		t.Errorf("QueryTabs = %v, want ErrNotLive", err)
	}
}

func TestBridgeDisconnectUnblocksCalls(t *testing.T) {
	srv := New(0)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn := fakeExtension(t, ctx, srv, nil)

	done := make(chan error, 1)
	go func() {
		_, err := srv.QueryTabs(ctx)
		done <- err
	}()

	// Read the command, then hang up without answering.
	if _, _, err := conn.Read(ctx); err != nil {
		t.Fatalf("read: %v", err)
	}
	conn.Close(websocket.StatusNormalClosure, "bye")

	select {
	case err := <-done:
		if !errors.Is(err, ErrNotLive) {
			t.Errorf("err = %v, want ErrNotLive", err)
		}
	case <-ctx.Done():
		t.Fatal("call still blocked after disconnect")
	}
}

func TestBridgeTimeout(t *testing.T) {
	srv := New(0)
	srv.timeout = 50 * time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	fakeExtension(t, ctx, srv, nil)

	if _, err := srv.QueryGroups(context.Background()); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}
