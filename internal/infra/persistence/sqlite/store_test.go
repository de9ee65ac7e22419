package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"flowcore/pkg/domain"
)

func openStore(t *testing.T, path string) *Store {
	t.Helper()
	store, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.DB().Close() })
	return store
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flowcore.db")
	store := openStore(t, path)

	var flowCell domain.FlowCell
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		machine, err := tx.CreateSequencingMachine(domain.SequencingMachine{VendorID: "NS501", SlotCount: 1})
		if err != nil {
			return err
		}
		flowCell, err = tx.CreateFlowCell(domain.FlowCell{
			VendorID:            "FC001",
			SequencingMachineID: machine.ID,
			RunNumber:           1,
			NumLanes:            8,
		})
		if err != nil {
			return err
		}
		_, err = tx.CreateLibrary(domain.Library{FlowCellID: flowCell.ID, Name: "sample", LaneNumbers: []int{1}})
		return err
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	rev := store.FlowCellRevision(flowCell.ID)
	if err := store.DB().Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := openStore(t, path)
	got, ok := reopened.GetFlowCell(flowCell.ID)
	if !ok || got.VendorID != "FC001" {
		t.Fatalf("flow cell lost across reopen: %+v ok=%v", got, ok)
	}
	libs := reopened.ListLibraries(flowCell.ID)
	if len(libs) != 1 || libs[0].Name != "sample" {
		t.Fatalf("libraries lost across reopen: %v", libs)
	}
	if gotRev := reopened.FlowCellRevision(flowCell.ID); gotRev != rev {
		t.Fatalf("revision lost across reopen: %d vs %d", gotRev, rev)
	}
}

func TestStoreFailedTransactionNotPersisted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flowcore.db")
	store := openStore(t, path)

	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.CreateSequencingMachine(domain.SequencingMachine{VendorID: "NS501"}); err != nil {
			return err
		}
		return context.Canceled
	})
	if err == nil {
		t.Fatal("expected callback error")
	}
	if err := store.DB().Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := openStore(t, path)
	if machines := reopened.ListSequencingMachines(); len(machines) != 0 {
		t.Fatalf("rolled-back state persisted: %v", machines)
	}
}

func TestStoreDefaultsPathWhenEmpty(t *testing.T) {
	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(oldWD); err != nil {
			t.Fatalf("restore wd: %v", err)
		}
	})
	store := openStore(t, "")
	if store.Path() != "flowcore.db" {
		t.Fatalf("unexpected default path %q", store.Path())
	}
}
