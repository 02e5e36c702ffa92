package automation

import (
	"errors"
	"fmt"
	"strings"
)

// Priority orders queued runs. High runs are taken before normal and low ones.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// ParsePriority accepts low, normal or high; empty means normal.
func ParsePriority(s string) (Priority, error) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PriorityNormal, nil
	case PriorityLow, PriorityNormal, PriorityHigh:
		return p, nil
	default:
		return "", fmt.Errorf("invalid priority %q", s)
	}
}

// Options are fixed when a run is submitted and never change afterwards.
type Options struct {
	AutoApproveLimit  float64  `json:"auto_approve_limit"`
	SendNotifications bool     `json:"send_notifications"`
	UpdateCache       bool     `json:"update_cache"`
	AutoReorder       bool     `json:"auto_reorder"`
	Priority          Priority `json:"priority"`
}

// DefaultOptions notify, cache stats and reorder without auto-approval.
func DefaultOptions() Options {
	return Options{
		SendNotifications: true,
		UpdateCache:       true,
		AutoReorder:       true,
		Priority:          PriorityNormal,
	}
}

// Request selects the entities a run evaluates. Explicit ids win over Category;
// with neither set every active entity is evaluated.
type Request struct {
	EntityIDs []string `json:"entity_ids,omitempty"`
	Category  string   `json:"category,omitempty"`
	Force     bool     `json:"force,omitempty"`
	Options   Options  `json:"options"`
}

// TriggerParams is the on-demand trigger payload. Unset fields keep the
// configured defaults.
type TriggerParams struct {
	EntityID          string   `json:"entity_id,omitempty"`
	EntityIDs         []string `json:"entity_ids,omitempty"`
	Category          string   `json:"category,omitempty"`
	Department        string   `json:"department,omitempty"`
	Force             bool     `json:"force,omitempty"`
	AutoApproveLimit  *float64 `json:"auto_approve_limit,omitempty"`
	SendNotifications *bool    `json:"send_notifications,omitempty"`
	UpdateCache       *bool    `json:"update_cache,omitempty"`
	AutoReorder       *bool    `json:"auto_reorder,omitempty"`
	Priority          string   `json:"priority,omitempty"`
}

// Request merges the params onto defaults and validates the result.
func (p TriggerParams) Request(defaults Options) (Request, error) {
	opts := defaults
	if p.AutoApproveLimit != nil {
		if *p.AutoApproveLimit < 0 {
			return Request{}, errors.New("auto_approve_limit must not be negative")
		}
		opts.AutoApproveLimit = *p.AutoApproveLimit
	}
	if p.SendNotifications != nil {
		opts.SendNotifications = *p.SendNotifications
	}
	if p.UpdateCache != nil {
		opts.UpdateCache = *p.UpdateCache
	}
	if p.AutoReorder != nil {
		opts.AutoReorder = *p.AutoReorder
	}
	if p.Priority != "" {
		prio, err := ParsePriority(p.Priority)
		if err != nil {
			return Request{}, err
		}
		opts.Priority = prio
	}
	if opts.Priority == "" {
		opts.Priority = PriorityNormal
	}

	ids := append([]string(nil), p.EntityIDs...)
	if p.EntityID != "" {
		ids = append([]string{p.EntityID}, ids...)
	}
	category := p.Category
	if category == "" {
		category = p.Department
	}
	return Request{EntityIDs: ids, Category: category, Force: p.Force, Options: opts}, nil
}
