package server

import (
	"context"
	"fmt"

	"github.com/lotas/seitenleiste/internal/host"
	"github.com/lotas/seitenleiste/internal/types"
)

var (
	_ host.Host      = (*Server)(nil)
	_ host.GroupHost = (*Server)(nil)
)

func hostID(id types.ID) (int, error) {
	n, ok := id.Int()
	if !ok {
		return 0, fmt.Errorf("tab %s: %w", id, host.ErrTabNotFound)
	}
	return n, nil
}

func hostIDs(ids []types.ID) ([]int, error) {
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		n, err := hostID(id)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func (s *Server) QueryTabs(ctx context.Context) ([]host.LiveTab, error) {
	resp, err := s.call(ctx, OutgoingMsg{Action: "query-tabs"})
	if err != nil {
		return nil, err
	}
	return ParseTabs(resp.Tabs)
}

func (s *Server) GetTab(ctx context.Context, id types.ID) (host.LiveTab, error) {
	n, err := hostID(id)
	if err != nil {
		return host.LiveTab{}, err
	}
	resp, err := s.call(ctx, OutgoingMsg{Action: "get-tab", TabID: n})
	if err != nil {
		return host.LiveTab{}, err
	}
	if len(resp.Tab) == 0 {
		return host.LiveTab{}, fmt.Errorf("get-tab %s: %w", id, host.ErrTabNotFound)
	}
	return ParseTab(resp.Tab)
}

func (s *Server) CreateTab(ctx context.Context, url string, active bool) (host.LiveTab, error) {
	resp, err := s.call(ctx, OutgoingMsg{Action: "create-tab", URL: url, Active: &active})
	if err != nil {
		return host.LiveTab{}, err
	}
	return ParseTab(resp.Tab)
}

func (s *Server) ActivateTab(ctx context.Context, id types.ID) error {
	n, err := hostID(id)
	if err != nil {
		return err
	}
	_, err = s.call(ctx, OutgoingMsg{Action: "activate-tab", TabID: n})
	return err
}

func (s *Server) RemoveTab(ctx context.Context, id types.ID) error {
	n, err := hostID(id)
	if err != nil {
		return err
	}
	_, err = s.call(ctx, OutgoingMsg{Action: "remove-tab", TabID: n})
	return err
}

func (s *Server) QueryGroups(ctx context.Context) ([]host.LiveGroup, error) {
	resp, err := s.call(ctx, OutgoingMsg{Action: "query-groups"})
	if err != nil {
		return nil, err
	}
	return ParseGroups(resp.Groups)
}

func (s *Server) GroupTabs(ctx context.Context, tabIDs []types.ID, groupID types.ID) (types.ID, error) {
	ids, err := hostIDs(tabIDs)
	if err != nil {
		return "", err
	}
	msg := OutgoingMsg{Action: "group-tabs", TabIDs: ids}
	if groupID != "" {
		if msg.GroupID, err = hostID(groupID); err != nil {
			return "", err
		}
	}
	resp, err := s.call(ctx, msg)
	if err != nil {
		return "", err
	}
	if resp.GroupID <= 0 {
		return "", fmt.Errorf("group-tabs: no group id in response")
	}
	return types.IntID(resp.GroupID), nil
}

func (s *Server) UngroupTabs(ctx context.Context, tabIDs []types.ID) error {
	ids, err := hostIDs(tabIDs)
	if err != nil {
		return err
	}
	_, err = s.call(ctx, OutgoingMsg{Action: "ungroup-tabs", TabIDs: ids})
	return err
}

func (s *Server) UpdateGroup(ctx context.Context, id types.ID, u host.GroupUpdate) error {
	n, ok := id.Int()
	if !ok {
		return fmt.Errorf("update-group: %s is not a browser group", id)
	}
	msg := OutgoingMsg{Action: "update-group", GroupID: n, Title: u.Title, Collapsed: u.Collapsed}
	if u.Color != nil {
		c := string(*u.Color)
		msg.Color = &c
	}
	_, err := s.call(ctx, msg)
	return err
}
