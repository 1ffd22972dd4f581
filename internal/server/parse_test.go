package server

import (
	"encoding/json"
	"testing"

	"github.com/lotas/seitenleiste/internal/host"
	"github.com/lotas/seitenleiste/internal/types"
)

func TestParseEvent(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    host.Event
		wantErr bool
	}{
		{
			name: "updated with tabId",
			raw:  `{"type":"tab.updated","tabId":4,"tab":{"id":4,"title":"T","url":"https://t.example","favIconUrl":"https://t.example/f.ico","groupId":12}}`,
			want: host.Event{Kind: host.TabUpdated, TabID: "4", Tab: host.LiveTab{ID: "4", Title: "T", URL: "https://t.example", FavIconURL: "https://t.example/f.ico", HostGroupID: "12"}},
		},
		{
			name: "activated",
			raw:  `{"type":"tab.activated","tabId":8}`,
			want: host.Event{Kind: host.TabActivated, TabID: "8"},
		},
		{
			name: "group updated",
			raw:  `{"type":"group.updated","group":{"id":3,"title":"Work","color":"cyan","collapsed":true}}`,
			want: host.Event{Kind: host.GroupUpdated, GroupID: "3", Group: host.LiveGroup{ID: "3", Title: "Work", Color: types.ColorCyan, Collapsed: true}},
		},
		{
			name: "group removed",
			raw:  `{"type":"group.removed","groupId":3}`,
			want: host.Event{Kind: host.GroupRemoved, GroupID: "3"},
		},
		{name: "created without tab", raw: `{"type":"tab.created"}`, wantErr: true},
		{name: "removed without id", raw: `{"type":"tab.removed"}`, wantErr: true},
		{name: "unknown", raw: `{"type":"snapshot"}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var msg IncomingMsg
			if err := json.Unmarshal([]byte(tt.raw), &msg); err != nil {
				t.Fatal(err)
			}
			got, err := ParseEvent(msg)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseEvent: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v\nwant %+v", got, tt.want)
			}
		})
	}
}

func TestParseTabsEmpty(t *testing.T) {
	tabs, err := ParseTabs(nil)
	if err != nil || len(tabs) != 0 {
		t.Errorf("ParseTabs(nil) = %v, %v", tabs, err)
	}
	if _, err := ParseTabs(json.RawMessage(`{"id":1}`)); err == nil {
		t.Error("expected error for non-array tabs")
	}
}

func TestOutgoingMsgOmitsUnsetFields(t *testing.T) {
	active := false
	data, err := json.Marshal(OutgoingMsg{ID: "cmd-1", Action: "create-tab", URL: "https://a.example", Active: &active})
	if err != nil {
		t.Fatal(err)
	}
	var parsed map[string]any
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatal(err)
	}
	if parsed["active"] != false {
		t.Errorf("active = %v, want explicit false", parsed["active"])
	}
	for _, key := range []string{"tabId", "tabIds", "groupId", "title", "color", "collapsed"} {
		if _, ok := parsed[key]; ok {
			t.Errorf("unexpected key %q in %s", key, data)
		}
	}
}
