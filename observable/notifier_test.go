package observable_test

import (
	"errors"
	"testing"

	"github.com/tailored-agentic-units/audioplayer/observable"
	"github.com/tailored-agentic-units/audioplayer/observation"
)

type track struct {
	observable.Base
}

func (t *track) Properties() []string {
	return []string{"title", "rate"}
}

type opaque struct {
	observable.Base
}

type recorder struct {
	calls []string
}

func (r *recorder) Dispatch(obj observation.Object, property string) {
	r.calls = append(r.calls, property)
}

func TestNotifier_Install(t *testing.T) {
	n := observable.NewNotifier()

	tests := []struct {
		name     string
		obj      observation.Object
		property string
		wantErr  error
	}{
		{name: "declared property", obj: &track{Base: observable.NewBase(n)}, property: "title"},
		{name: "undeclared property", obj: &track{Base: observable.NewBase(n)}, property: "volume", wantErr: observable.ErrNotObservable},
		{name: "object without properties", obj: &opaque{Base: observable.NewBase(n)}, property: "title", wantErr: observable.ErrNotObservable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := n.Install(tt.obj, tt.property, &recorder{})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Install() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Errorf("Install() unexpected error: %v", err)
			}
		})
	}
}

func TestNotifier_Changed(t *testing.T) {
	n := observable.NewNotifier()
	a := &track{Base: observable.NewBase(n)}
	b := &track{Base: observable.NewBase(n)}

	ra, rb := &recorder{}, &recorder{}
	if _, err := n.Install(a, "title", ra); err != nil {
		t.Fatalf("Install() failed: %v", err)
	}
	if _, err := n.Install(b, "title", rb); err != nil {
		t.Fatalf("Install() failed: %v", err)
	}

	a.Publish(a, "title")
	a.Publish(a, "rate")

	if len(ra.calls) != 1 || ra.calls[0] != "title" {
		t.Errorf("dispatcher for a got %v, want [title]", ra.calls)
	}
	if len(rb.calls) != 0 {
		t.Errorf("dispatcher for b got %v, want none", rb.calls)
	}
}

func TestNotifier_DistinctIdentity(t *testing.T) {
	n := observable.NewNotifier()
	a := &track{Base: observable.NewBase(n)}
	b := &track{Base: observable.NewBase(n)}

	if a.ObservationID() == b.ObservationID() {
		t.Fatal("structurally equal objects share an identity")
	}
}

func TestNotifier_Uninstall(t *testing.T) {
	n := observable.NewNotifier()
	a := &track{Base: observable.NewBase(n)}
	r := &recorder{}

	h, err := n.Install(a, "rate", r)
	if err != nil {
		t.Fatalf("Install() failed: %v", err)
	}
	if got := n.InstalledFor(a, "rate"); got != 1 {
		t.Errorf("InstalledFor() = %d, want 1", got)
	}

	if err := n.Uninstall(h); err != nil {
		t.Fatalf("Uninstall() failed: %v", err)
	}
	a.Publish(a, "rate")

	if len(r.calls) != 0 {
		t.Errorf("dispatcher called %d times after Uninstall, want 0", len(r.calls))
	}
	if n.Installed() != 0 {
		t.Errorf("Installed() = %d, want 0", n.Installed())
	}

	if err := n.Uninstall(h); !errors.Is(err, observable.ErrUnknownHandle) {
		t.Errorf("second Uninstall() error = %v, want %v", err, observable.ErrUnknownHandle)
	}
}

func TestBase_NilNotifier(t *testing.T) {
	a := &track{Base: observable.NewBase(nil)}
	a.Publish(a, "title")
}
