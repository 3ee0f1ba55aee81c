package applet

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestClient_SendAndDelete(t *testing.T) {
	svc := newFakeService(t)
	c := NewClient(svc.URL(), testLogger())
	defer c.Close()
	ctx := context.Background()

	sig := NewSignal(grid(4, 4), WithOrigin(2, 0), WithExtensionID("cli"))
	if _, err := c.Send(ctx, sig); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if sig.ID != 1 {
		t.Errorf("ID = %d, want 1", sig.ID)
	}

	// signals are sent as given, without clamping
	zones := svc.Signals()[0].zones(t)
	if len(zones) != 16 || zones[0].ZoneID != "2,0" {
		t.Errorf("zones = %d starting at %s, want 16 starting at 2,0", len(zones), zones[0].ZoneID)
	}

	if _, err := c.Delete(ctx, sig); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := c.DeleteID(ctx, "7"); err != nil {
		t.Fatalf("DeleteID() error = %v", err)
	}
	if got := svc.Deleted(); !reflect.DeepEqual(got, []string{"1", "7"}) {
		t.Errorf("deleted = %v, want [1 7]", got)
	}
}

func TestClient_Errors(t *testing.T) {
	svc := newFakeService(t)
	c := NewClient(svc.URL(), testLogger())
	defer c.Close()
	ctx := context.Background()

	if _, err := c.Send(ctx, nil); err == nil {
		t.Error("Send(nil) error = nil, want error")
	}
	if _, err := c.Delete(ctx, NewSignal(nil)); err == nil {
		t.Error("Delete() without id error = nil, want error")
	}

	svc.omitID.Store(true)
	sig := NewSignal(nil)
	if _, err := c.Send(ctx, sig); !errors.Is(err, ErrSignalNotAccepted) {
		t.Errorf("Send() error = %v, want ErrSignalNotAccepted", err)
	}
	if sig.ID != 0 {
		t.Errorf("ID = %d, want 0", sig.ID)
	}
}

func TestApplet_ClientSharesConnection(t *testing.T) {
	svc := newFakeService(t)
	a := newTestApplet(t, &countingRunner{}, svc)

	if _, err := a.Client().DeleteID(context.Background(), "3"); err != nil {
		t.Fatalf("DeleteID() error = %v", err)
	}
	if got := svc.Deleted(); len(got) != 1 || got[0] != "3" {
		t.Errorf("deleted = %v, want [3]", got)
	}
}
