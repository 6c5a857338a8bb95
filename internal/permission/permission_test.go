package permission

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/connshare/internal/errs"
	"github.com/koustreak/connshare/internal/prompt"
)

// fakeSecrets is an in-memory secrets.Store that counts writes.
type fakeSecrets struct {
	data map[string]string
	sets int
}

func newFakeSecrets() *fakeSecrets {
	return &fakeSecrets{data: map[string]string{}}
}

func (f *fakeSecrets) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *fakeSecrets) Set(_ context.Context, key, value string) error {
	f.sets++
	f.data[key] = value
	return nil
}

func (f *fakeSecrets) Delete(_ context.Context, key string) error {
	delete(f.data, key)
	return nil
}

func (f *fakeSecrets) Close() error { return nil }

// fakePrompter returns scripted answers and records how often it was shown.
type fakePrompter struct {
	confirmChoice prompt.Choice
	confirms      int
	pickItem      string
	pickOK        bool
	picks         int
}

func (f *fakePrompter) Confirm(context.Context, string, string, string) (prompt.Choice, error) {
	f.confirms++
	return f.confirmChoice, nil
}

func (f *fakePrompter) QuickPick(context.Context, string, []string) (string, bool, error) {
	f.picks++
	return f.pickItem, f.pickOK, nil
}

func TestStoreUnknownExtensionIsUndecided(t *testing.T) {
	sec := newFakeSecrets()
	store := NewStore(sec)
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "never.seen")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreInitializesEmptyMapExactlyOnce(t *testing.T) {
	sec := newFakeSecrets()
	store := NewStore(sec)
	ctx := context.Background()

	m, err := store.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, m)
	assert.Equal(t, 1, sec.sets)

	// Second load finds the persisted empty map and does not write again.
	_, err = store.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sec.sets)
}

func TestStoreSelfHealsCorruptBlob(t *testing.T) {
	sec := newFakeSecrets()
	sec.data[StorageKey] = "invalid-json-{]"
	store := NewStore(sec)
	ctx := context.Background()

	m, err := store.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, m)

	// The corrupt blob was replaced with a valid empty map.
	assert.JSONEq(t, "{}", sec.data[StorageKey])
}

func TestStoreRoundTripLastWriteWins(t *testing.T) {
	store := NewStore(newFakeSecrets())
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "test.extension", Approved))
	d, ok, err := store.Get(ctx, "test.extension")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, Approved, d)

	require.NoError(t, store.Set(ctx, "test.extension", Denied))
	d, _, err = store.Get(ctx, "test.extension")
	require.NoError(t, err)
	assert.Equal(t, Denied, d)
}

func TestStoreRemoveAndClear(t *testing.T) {
	store := NewStore(newFakeSecrets())
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "a", Approved))
	require.NoError(t, store.Set(ctx, "b", Denied))

	require.NoError(t, store.Remove(ctx, "a"))
	_, ok, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Clear(ctx))
	m, err := store.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, m)
}

func TestRequestPermissionPersistedApprovalSkipsPrompt(t *testing.T) {
	store := NewStore(newFakeSecrets())
	p := &fakePrompter{}
	broker := NewBroker(store, p)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "test.extension", Approved))

	granted, err := broker.RequestPermission(ctx, "test.extension")
	require.NoError(t, err)
	assert.True(t, granted)
	assert.Zero(t, p.confirms)
}

func TestRequestPermissionPersistedDenialSkipsPrompt(t *testing.T) {
	store := NewStore(newFakeSecrets())
	p := &fakePrompter{}
	broker := NewBroker(store, p)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "test.extension", Denied))

	granted, err := broker.RequestPermission(ctx, "test.extension")
	require.NoError(t, err)
	assert.False(t, granted)
	assert.Zero(t, p.confirms)
}

func TestRequestPermissionExplicitChoicesPersist(t *testing.T) {
	tests := []struct {
		name    string
		choice  prompt.Choice
		granted bool
		want    Decision
	}{
		{name: "approve", choice: prompt.Yes, granted: true, want: Approved},
		{name: "deny", choice: prompt.No, granted: false, want: Denied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore(newFakeSecrets())
			broker := NewBroker(store, &fakePrompter{confirmChoice: tt.choice})
			ctx := context.Background()

			granted, err := broker.RequestPermission(ctx, "test.extension")
			require.NoError(t, err)
			assert.Equal(t, tt.granted, granted)

			d, ok, err := store.Get(ctx, "test.extension")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, tt.want, d)
		})
	}
}

func TestRequestPermissionDismissalPersistsNothing(t *testing.T) {
	store := NewStore(newFakeSecrets())
	p := &fakePrompter{confirmChoice: prompt.Dismissed}
	broker := NewBroker(store, p)
	ctx := context.Background()

	granted, err := broker.RequestPermission(ctx, "test.extension")
	require.NoError(t, err)
	assert.False(t, granted)

	_, ok, err := store.Get(ctx, "test.extension")
	require.NoError(t, err)
	assert.False(t, ok, "dismissal must not persist a decision")

	// The user can be asked again later.
	_, err = broker.RequestPermission(ctx, "test.extension")
	require.NoError(t, err)
	assert.Equal(t, 2, p.confirms)
}

func TestValidateDeniedWithoutPrompting(t *testing.T) {
	store := NewStore(newFakeSecrets())
	p := &fakePrompter{}
	broker := NewBroker(store, p)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "test.extension", Denied))

	err := broker.Validate(ctx, "test.extension")
	assert.True(t, errs.IsPermissionDenied(err))
	assert.Zero(t, p.confirms)
}

func TestValidateUndecidedDismissed(t *testing.T) {
	store := NewStore(newFakeSecrets())
	broker := NewBroker(store, &fakePrompter{confirmChoice: prompt.Dismissed})

	err := broker.Validate(context.Background(), "test.extension")
	assert.True(t, errs.IsPermissionRequired(err))
}

func TestValidateApprovedViaPrompt(t *testing.T) {
	store := NewStore(newFakeSecrets())
	broker := NewBroker(store, &fakePrompter{confirmChoice: prompt.Yes})

	assert.NoError(t, broker.Validate(context.Background(), "test.extension"))
}

func TestEditPermissionsCancelIsSuccessShaped(t *testing.T) {
	store := NewStore(newFakeSecrets())
	broker := NewBroker(store, &fakePrompter{pickOK: false})

	d, err := broker.EditPermissions(context.Background(), "test.extension")
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestEditPermissionsApprove(t *testing.T) {
	store := NewStore(newFakeSecrets())
	broker := NewBroker(store, &fakePrompter{pickItem: "Approve", pickOK: true})
	ctx := context.Background()

	d, err := broker.EditPermissions(ctx, "test.extension")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, Approved, *d)

	stored, ok, err := store.Get(ctx, "test.extension")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, Approved, stored)
}

func TestEditPermissionsRemove(t *testing.T) {
	store := NewStore(newFakeSecrets())
	broker := NewBroker(store, &fakePrompter{pickItem: "Remove decision", pickOK: true})
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "test.extension", Denied))

	d, err := broker.EditPermissions(ctx, "test.extension")
	require.NoError(t, err)
	assert.Nil(t, d)

	_, ok, err := store.Get(ctx, "test.extension")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClearAllRequiresConfirmation(t *testing.T) {
	store := NewStore(newFakeSecrets())
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "a", Approved))

	broker := NewBroker(store, &fakePrompter{confirmChoice: prompt.No})
	require.NoError(t, broker.ClearAll(ctx))

	m, err := store.All(ctx)
	require.NoError(t, err)
	assert.Len(t, m, 1, "declining the confirmation must not clear")

	broker = NewBroker(store, &fakePrompter{confirmChoice: prompt.Yes})
	require.NoError(t, broker.ClearAll(ctx))

	m, err = store.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, m)
}
