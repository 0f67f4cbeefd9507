package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/five82/gatehouse/internal/adminapi"
	"github.com/five82/gatehouse/internal/state"
)

// Action names a point write.
type Action string

const (
	ActionMarkPaid   Action = "mark-paid"
	ActionBlock      Action = "block"
	ActionApprove    Action = "approve"
	ActionReject     Action = "reject"
	ActionAssignGate Action = "assign-gate"
	ActionCreate     Action = "create"
	ActionUpdate     Action = "update"
)

// Actions returns the actions each kind supports.
func Actions(kind state.Kind) []Action {
	switch kind {
	case state.KindDues:
		return []Action{ActionMarkPaid}
	case state.KindVehicles:
		return []Action{ActionBlock, ActionApprove, ActionReject}
	case state.KindRequests:
		return []Action{ActionApprove, ActionReject}
	case state.KindGuards:
		return []Action{ActionAssignGate, ActionCreate}
	case state.KindSettings:
		return []Action{ActionUpdate}
	default:
		return nil
	}
}

// Payload carries action arguments: reason for rejections, gate for
// assignments, name and gate for guard creation, and the changed fields for
// a settings update.
type Payload map[string]any

// Text returns the value at key as trimmed text.
func (p Payload) Text(key string) string {
	if p == nil {
		return ""
	}
	switch v := p[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// Writer is the write side of the administration API.
type Writer interface {
	MarkDuePaid(ctx context.Context, id string) (json.RawMessage, error)
	BlockVehicle(ctx context.Context, id string) (json.RawMessage, error)
	ApproveVehicle(ctx context.Context, id string) (json.RawMessage, error)
	RejectVehicle(ctx context.Context, id, reason string) (json.RawMessage, error)
	ApproveRequest(ctx context.Context, id string) (json.RawMessage, error)
	RejectRequest(ctx context.Context, id, reason string) (json.RawMessage, error)
	AssignGate(ctx context.Context, id, gate string) (json.RawMessage, error)
	CreateGuard(ctx context.Context, guard adminapi.NewGuard) (json.RawMessage, error)
	UpdateSettings(ctx context.Context, fields map[string]any) (json.RawMessage, error)
}

// Applier performs point writes and folds the server's answer into the
// matching store.
type Applier struct {
	api     Writer
	coord   *Coordinator
	reg     *state.Registry
	logger  *slog.Logger
	metrics *Metrics
}

// NewApplier returns an Applier writing into coord's registry. coord is also
// used to reload a kind when a response cannot be merged.
func NewApplier(api Writer, coord *Coordinator, opts ...Option) *Applier {
	o := buildOptions(opts)
	return &Applier{
		api:     api,
		coord:   coord,
		reg:     coord.Registry(),
		logger:  o.logger.With("component", "applier"),
		metrics: o.metrics,
	}
}

// Apply runs action on the record id of kind. On success the store holds the
// fields the server returned; on failure the store is untouched and a
// *MutationError is returned. Creation ignores id.
func (a *Applier) Apply(ctx context.Context, kind state.Kind, id string, action Action, payload Payload) error {
	id = strings.TrimSpace(id)
	switch kind {
	case state.KindDues:
		if action == ActionMarkPaid {
			return patch(ctx, a, kind, action, id, a.reg.Dues, func(ctx context.Context) (json.RawMessage, error) {
				return a.api.MarkDuePaid(ctx, id)
			})
		}
	case state.KindVehicles:
		switch action {
		case ActionBlock:
			return patch(ctx, a, kind, action, id, a.reg.Vehicles, func(ctx context.Context) (json.RawMessage, error) {
				return a.api.BlockVehicle(ctx, id)
			})
		case ActionApprove:
			return patch(ctx, a, kind, action, id, a.reg.Vehicles, func(ctx context.Context) (json.RawMessage, error) {
				return a.api.ApproveVehicle(ctx, id)
			})
		case ActionReject:
			return patch(ctx, a, kind, action, id, a.reg.Vehicles, func(ctx context.Context) (json.RawMessage, error) {
				return a.api.RejectVehicle(ctx, id, payload.Text("reason"))
			})
		}
	case state.KindRequests:
		switch action {
		case ActionApprove:
			return patch(ctx, a, kind, action, id, a.reg.Requests, func(ctx context.Context) (json.RawMessage, error) {
				return a.api.ApproveRequest(ctx, id)
			})
		case ActionReject:
			reason := payload.Text("reason")
			if reason == "" {
				return a.invalid(kind, action, id, "reason is required")
			}
			return patch(ctx, a, kind, action, id, a.reg.Requests, func(ctx context.Context) (json.RawMessage, error) {
				return a.api.RejectRequest(ctx, id, reason)
			})
		}
	case state.KindGuards:
		switch action {
		case ActionAssignGate:
			gate := payload.Text("gate")
			if gate == "" {
				return a.invalid(kind, action, id, "gate is required")
			}
			return patch(ctx, a, kind, action, id, a.reg.Guards, func(ctx context.Context) (json.RawMessage, error) {
				return a.api.AssignGate(ctx, id, gate)
			})
		case ActionCreate:
			return a.createGuard(ctx, payload)
		}
	case state.KindSettings:
		if action == ActionUpdate {
			return a.updateSettings(ctx, payload)
		}
	case state.KindUsers, state.KindLogs, state.KindAudit, state.KindMetrics:
	default:
		return &MutationError{Kind: kind, Action: action, ID: id, Err: ErrUnknownKind}
	}
	return &MutationError{Kind: kind, Action: action, ID: id, Err: ErrUnknownAction}
}

func (a *Applier) invalid(kind state.Kind, action Action, id, msg string) error {
	a.metrics.mutation(kind, action, outcomeError)
	return &MutationError{Kind: kind, Action: action, ID: id, Err: errors.New(msg)}
}

func patch[T state.Entity](ctx context.Context, a *Applier, kind state.Kind, action Action, id string, store *state.Store[T], write func(context.Context) (json.RawMessage, error)) error {
	if id == "" {
		return a.invalid(kind, action, id, "id is required")
	}
	raw, err := write(ctx)
	if err != nil {
		a.metrics.mutation(kind, action, outcomeError)
		a.logger.Warn("mutation failed", "kind", kind, "action", action, "id", id, "error", err)
		return &MutationError{Kind: kind, Action: action, ID: id, Err: err}
	}

	respID, ok := responseID(raw)
	if !ok || respID != id {
		return a.fallback(ctx, kind, action, id, fmt.Sprintf("response id %q", respID))
	}

	patched, err := store.PatchOne(id, raw)
	if err != nil {
		return a.fallback(ctx, kind, action, id, err.Error())
	}
	a.metrics.mutation(kind, action, outcomeOK)
	a.logger.Info("mutation applied", "kind", kind, "action", action, "id", id, "cached", patched)
	return nil
}

// fallback reloads kind with its last query when the write succeeded but the
// response does not describe the target record. The write stands either way:
// a failed reload is recorded on the store by the coordinator and only
// logged here.
func (a *Applier) fallback(ctx context.Context, kind state.Kind, action Action, id, reason string) error {
	a.metrics.mutation(kind, action, outcomeFallback)
	a.logger.Warn("mutation response not mergeable; reloading", "kind", kind, "action", action, "id", id, "reason", reason)
	if err := a.coord.Retry(ctx, kind); err != nil && !errors.Is(err, ErrSuperseded) {
		a.logger.Warn("reload after mutation failed", "kind", kind, "action", action, "id", id, "error", err)
	}
	return nil
}

func (a *Applier) createGuard(ctx context.Context, payload Payload) error {
	kind, action := state.KindGuards, ActionCreate
	guard := adminapi.NewGuard{Name: payload.Text("name"), Gate: payload.Text("gate")}
	if guard.Name == "" || guard.Gate == "" {
		return a.invalid(kind, action, "", "name and gate are required")
	}
	raw, err := a.api.CreateGuard(ctx, guard)
	if err != nil {
		a.metrics.mutation(kind, action, outcomeError)
		a.logger.Warn("mutation failed", "kind", kind, "action", action, "error", err)
		return &MutationError{Kind: kind, Action: action, Err: err}
	}

	var created adminapi.Guard
	if err := json.Unmarshal(raw, &created); err != nil || created.ID == "" {
		return a.fallback(ctx, kind, action, "", "created guard has no id")
	}
	a.reg.Guards.Append(created)
	a.metrics.mutation(kind, action, outcomeOK)
	a.logger.Info("mutation applied", "kind", kind, "action", action, "id", created.ID.String())
	return nil
}

func (a *Applier) updateSettings(ctx context.Context, payload Payload) error {
	kind, action := state.KindSettings, ActionUpdate
	if len(payload) == 0 {
		return a.invalid(kind, action, "", "no fields to update")
	}
	raw, err := a.api.UpdateSettings(ctx, map[string]any(payload))
	if err != nil {
		a.metrics.mutation(kind, action, outcomeError)
		a.logger.Warn("mutation failed", "kind", kind, "action", action, "error", err)
		return &MutationError{Kind: kind, Action: action, Err: err}
	}

	if !hasAnyKey(raw, "qrExpiry", "ocrEnabled", "notificationTemplate") {
		return a.fallback(ctx, kind, action, "", "response carries no settings fields")
	}
	patched, err := a.reg.Settings.PatchSelected(raw)
	if err != nil || !patched {
		return a.fallback(ctx, kind, action, "", "settings not cached")
	}
	a.metrics.mutation(kind, action, outcomeOK)
	a.logger.Info("mutation applied", "kind", kind, "action", action)
	return nil
}

func responseID(raw json.RawMessage) (string, bool) {
	var head struct {
		ID *adminapi.ID `json:"id"`
	}
	if err := json.Unmarshal(raw, &head); err != nil || head.ID == nil || *head.ID == "" {
		return "", false
	}
	return head.ID.String(), true
}

func hasAnyKey(raw json.RawMessage, keys ...string) bool {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return false
	}
	for _, k := range keys {
		if _, ok := fields[k]; ok {
			return true
		}
	}
	return false
}
