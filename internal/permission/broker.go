package permission

import (
	"context"
	"fmt"
	"sort"

	"github.com/koustreak/connshare/internal/errs"
	"github.com/koustreak/connshare/internal/logger"
	"github.com/koustreak/connshare/internal/prompt"
)

// Edit menu entries for EditPermissions.
const (
	actionApprove = "Approve"
	actionDeny    = "Deny"
	actionRemove  = "Remove decision"
)

// Broker turns an undecided permission into a decided one, exactly once per
// session of asking. A persisted denial short-circuits every later request
// without re-prompting; a dismissed prompt persists nothing, so the user
// can be asked again later.
type Broker struct {
	store    *Store
	prompter prompt.Prompter
	log      *logger.Logger
}

// NewBroker returns a broker over store that prompts through p.
func NewBroker(store *Store, p prompt.Prompter) *Broker {
	return &Broker{
		store:    store,
		prompter: p,
		log:      logger.Component("permission"),
	}
}

// Store exposes the underlying permission store.
func (b *Broker) Store() *Store {
	return b.store
}

// RequestPermission resolves the sharing permission for extensionID.
// A persisted decision is returned without any prompting. Otherwise the
// user is asked; an explicit choice is persisted, a dismissal is not.
func (b *Broker) RequestPermission(ctx context.Context, extensionID string) (bool, error) {
	d, ok, err := b.store.Get(ctx, extensionID)
	if err != nil {
		return false, err
	}
	if ok {
		return d == Approved, nil
	}

	msg := fmt.Sprintf(
		"The extension %q wants to use your database connections through connection sharing.",
		extensionID)
	choice, err := b.prompter.Confirm(ctx, msg, actionApprove, actionDeny)
	if err != nil {
		return false, err
	}

	switch choice {
	case prompt.Yes:
		if err := b.store.Set(ctx, extensionID, Approved); err != nil {
			return false, err
		}
		b.log.Infof("extension %s approved for connection sharing", extensionID)
		return true, nil
	case prompt.No:
		if err := b.store.Set(ctx, extensionID, Denied); err != nil {
			return false, err
		}
		b.log.Infof("extension %s denied connection sharing", extensionID)
		return false, nil
	default:
		// Dismissed: no decision is persisted so the user can be asked again.
		return false, nil
	}
}

// Validate fails with PERMISSION_DENIED when the persisted decision is a
// denial, and with PERMISSION_REQUIRED when no decision could be obtained
// (never asked and the prompt was dismissed, or an interactive approval
// was refused without persisting).
func (b *Broker) Validate(ctx context.Context, extensionID string) error {
	d, ok, err := b.store.Get(ctx, extensionID)
	if err != nil {
		return err
	}
	if ok && d == Denied {
		return errs.New(errs.CodePermissionDenied,
			"extension is denied access to connection sharing").WithExtension(extensionID)
	}

	granted, err := b.RequestPermission(ctx, extensionID)
	if err != nil {
		return err
	}
	if !granted {
		return errs.New(errs.CodePermissionRequired,
			"connection sharing permission has not been granted").WithExtension(extensionID)
	}
	return nil
}

// EditPermissions interactively changes the decision for extensionID; with
// an empty id the user first picks an extension from the stored map. Every
// cancellation is success-shaped: the returned decision is nil and no state
// changes. A Remove choice also returns nil, with the entry deleted.
func (b *Broker) EditPermissions(ctx context.Context, extensionID string) (*Decision, error) {
	if extensionID == "" {
		m, err := b.store.All(ctx)
		if err != nil {
			return nil, err
		}
		if len(m) == 0 {
			return nil, nil
		}
		ids := make([]string, 0, len(m))
		for id := range m {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		picked, ok, err := b.prompter.QuickPick(ctx, "Select an extension", ids)
		if err != nil || !ok {
			return nil, err
		}
		extensionID = picked
	}

	action, ok, err := b.prompter.QuickPick(ctx,
		fmt.Sprintf("Connection sharing permission for %q", extensionID),
		[]string{actionApprove, actionDeny, actionRemove})
	if err != nil || !ok {
		return nil, err
	}

	switch action {
	case actionApprove:
		if err := b.store.Set(ctx, extensionID, Approved); err != nil {
			return nil, err
		}
		d := Approved
		return &d, nil
	case actionDeny:
		if err := b.store.Set(ctx, extensionID, Denied); err != nil {
			return nil, err
		}
		d := Denied
		return &d, nil
	default:
		return nil, b.store.Remove(ctx, extensionID)
	}
}

// ClearAll removes every stored decision after an interactive confirmation.
func (b *Broker) ClearAll(ctx context.Context) error {
	choice, err := b.prompter.Confirm(ctx,
		"Clear all connection sharing permissions? Extensions will have to ask again.",
		"Clear", "Cancel")
	if err != nil {
		return err
	}
	if choice != prompt.Yes {
		return nil
	}
	if err := b.store.Clear(ctx); err != nil {
		return err
	}
	b.log.Info("all connection sharing permissions cleared")
	return nil
}
