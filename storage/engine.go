package storage

import (
	"github.com/pkg/errors"

	"github.com/txlogd/txlog/archive"
	"github.com/txlogd/txlog/config"
	"github.com/txlogd/txlog/dedup"
	"github.com/txlogd/txlog/ledger"
	"github.com/txlogd/txlog/prepared"
)

// Components bundles the packages a Snapshot is taken from and restored
// into. It exists so cmd/txlogd doesn't have to know the Snapshot struct's
// field names; it just hands over the pieces it already constructed at
// startup.
type Components struct {
	Log     *ledger.Log
	Window  *dedup.Index
	Pending *prepared.Set
	Archive *archive.Manager
	Config  config.Config
}

// Take assembles a Snapshot from the current state of every component.
func Take(c Components) Snapshot {
	return Snapshot{
		Log:     c.Log.TakeState(),
		Window:  c.Window.Snapshot(),
		Pending: c.Pending.Snapshot(),
		Archive: c.Archive.TakeState(),
		Config:  c.Config,
	}
}

// Restore pushes a previously-saved Snapshot back into every component.
// Archive shards are left unopened; the caller must reopen each one
// returned by c.Archive.Shards() via its own Factory before serving reads
// against it.
func Restore(c Components, snap Snapshot) error {
	c.Log.ReplaceState(snap.Log)
	if err := c.Window.Restore(snap.Window); err != nil {
		return errors.Wrap(err, "restoring window index")
	}
	c.Pending.Restore(snap.Pending)
	c.Archive.ReplaceState(snap.Archive)
	return nil
}
