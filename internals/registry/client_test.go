package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"schoolkit_backend/internals/helpers/errs"
)

func testRegistry(t *testing.T, handler http.HandlerFunc) Registry {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	f := NewHTTPFactory()
	return f.New(Config{ArtifactBase: srv.URL, PersonBase: srv.URL, ScriptBase: srv.URL, Token: "tok"})
}

func TestArtifactCreateDecodesResponse(t *testing.T) {
	reg := testRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/artifact/create" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("auth header = %q", got)
		}
		w.Write([]byte(`{"id":"art-1","code":"C1","state":"initial","unit":"u-1"}`))
	})

	art, err := reg.ArtifactCreate(context.Background(), ArtifactCreateRequest{Code: "C1", Name: "Class 1"})
	if err != nil {
		t.Fatalf("ArtifactCreate: %v", err)
	}
	if art.ID != "art-1" || art.UnitID != "u-1" {
		t.Fatalf("artifact = %+v", art)
	}
}

func TestRemoteErrorCodeBecomesDomainError(t *testing.T) {
	reg := testRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error_code":"locationIsNotInProperState","message":"folder closed"}`))
	})

	_, err := reg.UnitCreate(context.Background(), UnitCreateRequest{Name: "x"})
	if !errs.IsKind(err, errs.KindStateConflict) {
		t.Fatalf("err = %v, want state conflict", err)
	}
	if errs.CodeOf(err) != "locationIsNotInProperState" {
		t.Fatalf("code = %q", errs.CodeOf(err))
	}
}

func TestUnknownRemoteFailureIsRemoteCallFailed(t *testing.T) {
	reg := testRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`nope`))
	})

	err := reg.ArtifactDelete(context.Background(), "art-1")
	if !errs.IsKind(err, errs.KindRemoteCall) {
		t.Fatalf("err = %v, want remote call failure", err)
	}
}

func TestMissingBaseURIFailsFast(t *testing.T) {
	f := NewHTTPFactory()
	reg := f.New(Config{ArtifactBase: ""})
	if _, err := reg.RoleGet(context.Background(), "r-1"); !errs.IsKind(err, errs.KindRemoteCall) {
		t.Fatalf("err = %v, want remote call failure", err)
	}
}

func TestCastVerifyReturnsMatchedRoles(t *testing.T) {
	reg := testRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"role_group_ifc_list":["r-1","r-3"]}`))
	})

	matched, err := reg.CastVerify(context.Background(), []string{"r-1", "r-2", "r-3"})
	if err != nil {
		t.Fatalf("CastVerify: %v", err)
	}
	if len(matched) != 2 || matched[0] != "r-1" {
		t.Fatalf("matched = %v", matched)
	}
}
