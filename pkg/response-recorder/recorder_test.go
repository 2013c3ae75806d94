package recorder

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRecordsStatusAndBytes(t *testing.T) {
	rr := httptest.NewRecorder()
	rec := New(rr)

	rec.Header().Set("Content-Type", "text/plain")
	rec.WriteHeader(http.StatusCreated)
	rec.Write([]byte("Hello"))
	rec.Write([]byte(" world"))

	if rec.StatusCode() != http.StatusCreated || rr.Code != http.StatusCreated {
		t.Fatalf("Status is %d (underlying %d)", rec.StatusCode(), rr.Code)
	}
	if rec.BytesWritten() != 11 {
		t.Fatalf("Wrote %d bytes", rec.BytesWritten())
	}
	if body := rr.Body.String(); body != "Hello world" {
		t.Fatalf("Body is %s", body)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/plain" {
		t.Fatalf("Content-Type is %s", ct)
	}
}

func TestImplicitOK(t *testing.T) {
	rec := New(httptest.NewRecorder())
	if rec.StatusCode() != http.StatusOK {
		t.Fatalf("Status is %d", rec.StatusCode())
	}
	rec.Write([]byte("x"))
	if rec.StatusCode() != http.StatusOK {
		t.Fatalf("Status is %d", rec.StatusCode())
	}
}

func TestSecondWriteHeaderIgnored(t *testing.T) {
	rec := New(httptest.NewRecorder())
	rec.WriteHeader(http.StatusAccepted)
	rec.WriteHeader(http.StatusInternalServerError)
	if rec.StatusCode() != http.StatusAccepted {
		t.Fatalf("Status is %d", rec.StatusCode())
	}
}

func TestInformationalIsNotFinal(t *testing.T) {
	// use a real server, the test recorder latches the first status code
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := New(w)
		rec.Header().Set("Link", "</style.css>; rel=preload")
		rec.WriteHeader(http.StatusEarlyHints)
		rec.WriteHeader(http.StatusCreated)
		if len(rec.Informational()) != 1 || rec.Informational()[0] != http.StatusEarlyHints {
			t.Errorf("Informational is %v", rec.Informational())
		}
		if rec.StatusCode() != http.StatusCreated {
			t.Errorf("Status is %d", rec.StatusCode())
		}
	}))
	defer srv.Close()

	res, err := http.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("Status is %d", res.StatusCode)
	}
}

func TestFrom(t *testing.T) {
	rec := New(httptest.NewRecorder())
	if found, ok := From(rec); !ok || found != rec {
		t.Fatal("Recorder not found")
	}
	if _, ok := From(httptest.NewRecorder()); ok {
		t.Fatal("Found recorder in plain writer")
	}
	if err := http.NewResponseController(rec).Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
}
