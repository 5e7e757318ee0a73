package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/accessaurus/semantify/internal/apperr"
	"github.com/accessaurus/semantify/internal/engine"
	"github.com/accessaurus/semantify/internal/pipeline"
	"github.com/accessaurus/semantify/internal/store"
	"github.com/accessaurus/semantify/internal/testutil"
)

const sampleHTML = `<div class="site-header"><div class="menu"><a href="/about">About</a></div></div><p>Body</p>`

func TestIngestSuccess(t *testing.T) {
	db := testutil.TestDB(t)
	svc := testutil.NewPipeline(t, db)

	res, err := svc.Ingest(context.Background(), pipeline.IngestRequest{
		OrgID:   "org-1",
		PageURL: "http://localhost/pricing",
		HTML:    sampleHTML,
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.Status != pipeline.IngestStatusOK || res.TransformID == "" {
		t.Fatalf("result = %+v", res)
	}

	tr, err := db.GetTransform(res.TransformID)
	if err != nil {
		t.Fatalf("GetTransform: %v", err)
	}
	if tr.Status != store.StatusSuccess || tr.Engine != engine.NameHeuristic {
		t.Errorf("transform = %+v", tr)
	}
	if tr.CompletedAt == nil {
		t.Error("CompletedAt not stamped")
	}

	htmlOut, err := db.GetOutput(res.TransformID, store.OutputSemanticHTML)
	if err != nil {
		t.Fatalf("semantic_html output: %v", err)
	}
	var body pipeline.SemanticHTMLBody
	if err := json.Unmarshal(htmlOut.Body, &body); err != nil {
		t.Fatalf("decode semantic_html body: %v", err)
	}
	if !strings.Contains(body.HTML, "<header") || !strings.Contains(body.HTML, "<nav") {
		t.Errorf("rewritten markup: %q", body.HTML)
	}
	if !strings.Contains(body.Patch, "--- original.html") {
		t.Errorf("patch missing headers: %q", body.Patch)
	}

	if _, err := db.GetOutput(res.TransformID, store.OutputMetrics); err != nil {
		t.Errorf("metrics output: %v", err)
	}
	changes, err := db.ListChanges(res.TransformID)
	if err != nil || len(changes) != 2 {
		t.Errorf("changes = %+v, %v", changes, err)
	}
}

func TestIngestIdempotent(t *testing.T) {
	db := testutil.TestDB(t)
	svc := testutil.NewPipeline(t, db)
	req := pipeline.IngestRequest{
		OrgID:   "org-1",
		PageURL: "http://localhost/pricing",
		HTML:    sampleHTML,
	}

	first, err := svc.Ingest(context.Background(), req)
	if err != nil {
		t.Fatalf("first Ingest: %v", err)
	}
	second, err := svc.Ingest(context.Background(), req)
	if err != nil {
		t.Fatalf("second Ingest: %v", err)
	}
	if second.Status != pipeline.IngestStatusCached {
		t.Errorf("second status = %q, want cached", second.Status)
	}
	if second.TransformID != first.TransformID {
		t.Errorf("cache hit returned a different transform: %s vs %s", first.TransformID, second.TransformID)
	}

	// Whitespace-only churn fingerprints identically and stays cached.
	churned := req
	churned.HTML = strings.ReplaceAll(sampleHTML, "><", ">\n  <")
	third, err := svc.Ingest(context.Background(), churned)
	if err != nil {
		t.Fatalf("churned Ingest: %v", err)
	}
	if third.Status != pipeline.IngestStatusCached || third.TransformID != first.TransformID {
		t.Errorf("churned resubmission = %+v, want cache hit on %s", third, first.TransformID)
	}

	// A real content change produces a new transform.
	changed := req
	changed.HTML = sampleHTML + `<p>New section with different words entirely</p>`
	fourth, err := svc.Ingest(context.Background(), changed)
	if err != nil {
		t.Fatalf("changed Ingest: %v", err)
	}
	if fourth.Status != pipeline.IngestStatusOK || fourth.TransformID == first.TransformID {
		t.Errorf("changed content = %+v", fourth)
	}
}

func TestIngestValidation(t *testing.T) {
	db := testutil.TestDB(t)
	svc := testutil.NewPipeline(t, db)

	bad := []pipeline.IngestRequest{
		{PageURL: "http://localhost/a", HTML: "<p>x</p>"},
		{OrgID: "org-1", HTML: "<p>x</p>"},
		{OrgID: "org-1", PageURL: "http://localhost/a"},
		{OrgID: "org-1", PageURL: "not a url at all", HTML: "<p>x</p>"},
	}
	for _, req := range bad {
		if _, err := svc.Ingest(context.Background(), req); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("Ingest(%+v) err = %v, want ErrValidation", req, err)
		}
	}
}

func TestIngestUnverifiedDomain(t *testing.T) {
	db := testutil.TestDB(t)
	svc := testutil.NewPipeline(t, db)

	_, err := svc.Ingest(context.Background(), pipeline.IngestRequest{
		OrgID:   "org-1",
		PageURL: "https://stranger.example.com/page",
		HTML:    sampleHTML,
	})
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
	// Rejection must leave no page or transform state behind.
	if _, err := db.GetPageByURL("org-1", "https://stranger.example.com/page"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("page row created for rejected origin: %v", err)
	}
}

func TestIngestVerifiedDomain(t *testing.T) {
	db := testutil.TestDB(t)
	svc := testutil.NewPipeline(t, db)
	testutil.SeedVerifiedDomain(t, db, "org-1", "shop.example.com")

	res, err := svc.Ingest(context.Background(), pipeline.IngestRequest{
		OrgID:   "org-1",
		PageURL: "https://shop.example.com/catalog",
		HTML:    sampleHTML,
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.Status != pipeline.IngestStatusOK {
		t.Errorf("status = %q", res.Status)
	}

	// The verification belongs to org-1 only.
	if _, err := svc.Ingest(context.Background(), pipeline.IngestRequest{
		OrgID:   "org-2",
		PageURL: "https://shop.example.com/catalog",
		HTML:    sampleHTML,
	}); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("other tenant err = %v, want ErrForbidden", err)
	}
}

type failingEngine struct{}

func (failingEngine) Name() string { return "failing" }

func (failingEngine) Rewrite(context.Context, engine.Input) (*engine.Result, error) {
	return nil, errors.New("synthetic engine failure")
}

func TestIngestEngineFailure(t *testing.T) {
	db := testutil.TestDB(t)
	svc := pipeline.NewService(db, failingEngine{}, testutil.StaticVerifier{OK: true}, testutil.DiscardLogger())

	req := pipeline.IngestRequest{
		OrgID:   "org-1",
		PageURL: "http://localhost/broken",
		HTML:    sampleHTML,
	}
	_, err := svc.Ingest(context.Background(), req)
	if err == nil || !strings.Contains(err.Error(), "synthetic engine failure") {
		t.Fatalf("err = %v", err)
	}

	page, err := db.GetPageByURL("org-1", "http://localhost/broken")
	if err != nil {
		t.Fatalf("page row missing: %v", err)
	}
	tr, err := db.LatestTransform("org-1", page.ID, "")
	if err != nil {
		t.Fatalf("transform row missing: %v", err)
	}
	if tr.Status != store.StatusFailed {
		t.Errorf("status = %q, want failed", tr.Status)
	}
	if !strings.Contains(tr.Error, "synthetic engine failure") {
		t.Errorf("stored error = %q", tr.Error)
	}

	// Failed transforms are never auto-retried: resubmission is a cache hit
	// on the failed row.
	res, err := svc.Ingest(context.Background(), req)
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if res.Status != pipeline.IngestStatusCached || res.TransformID != tr.ID {
		t.Errorf("resubmit = %+v, want cached %s", res, tr.ID)
	}
}

func TestReview(t *testing.T) {
	db := testutil.TestDB(t)
	svc := testutil.NewPipeline(t, db)

	res, err := svc.Ingest(context.Background(), pipeline.IngestRequest{
		OrgID:   "org-1",
		PageURL: "http://localhost/review-me",
		HTML:    sampleHTML,
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.Approve(context.Background(), res.TransformID, "org-1", "user-7"); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	tr, _ := db.GetTransform(res.TransformID)
	if tr.ReviewStatus != store.ReviewApproved || tr.ReviewerID != "user-7" || tr.ReviewedAt == nil {
		t.Errorf("after approve: %+v", tr)
	}

	if err := svc.Reject(context.Background(), res.TransformID, "org-1", "user-8"); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	tr, _ = db.GetTransform(res.TransformID)
	if tr.ReviewStatus != store.ReviewRejected || tr.ReviewerID != "user-8" {
		t.Errorf("after reject: %+v", tr)
	}

	// Cross-tenant review is refused before any state changes.
	if err := svc.Approve(context.Background(), res.TransformID, "org-2", "intruder"); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("cross-tenant err = %v, want ErrForbidden", err)
	}
	if err := svc.Approve(context.Background(), "no-such-id", "org-1", "user-7"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing id err = %v, want ErrNotFound", err)
	}
}

func TestLatest(t *testing.T) {
	db := testutil.TestDB(t)
	svc := testutil.NewPipeline(t, db)
	ctx := context.Background()

	if _, err := svc.Latest(ctx, "org-1", "http://localhost/none", ""); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown page err = %v, want ErrNotFound", err)
	}

	res, err := svc.Ingest(ctx, pipeline.IngestRequest{
		OrgID:   "org-1",
		PageURL: "http://localhost/latest",
		HTML:    sampleHTML,
	})
	if err != nil {
		t.Fatal(err)
	}

	raw, err := svc.Latest(ctx, "org-1", "http://localhost/latest", "")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	var body pipeline.SemanticHTMLBody
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !strings.Contains(body.HTML, "<header") {
		t.Errorf("body = %+v", body)
	}

	// Narrowing to an unknown fingerprint finds nothing.
	if _, err := svc.Latest(ctx, "org-1", "http://localhost/latest", "ffffffffffffffff"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown hash err = %v, want ErrNotFound", err)
	}
	_ = res
}

func TestDomainLifecycle(t *testing.T) {
	db := testutil.TestDB(t)
	ctx := context.Background()

	// A verifier that only accepts the exact registered token.
	var issued string
	svc := pipeline.NewService(db, engine.NewHeuristic(), tokenVerifier{token: &issued}, testutil.DiscardLogger())

	d, err := svc.RegisterDomain(ctx, "org-1", "Shop.Example.COM")
	if err != nil {
		t.Fatalf("RegisterDomain: %v", err)
	}
	if d.Domain != "shop.example.com" {
		t.Errorf("domain not normalized: %q", d.Domain)
	}
	if _, err := svc.RegisterDomain(ctx, "org-1", "not a/hostname"); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("bad hostname err = %v, want ErrValidation", err)
	}

	// Wrong token published: verification fails and the flag stays off.
	issued = "wrong-token"
	ok, err := svc.VerifyDomain(ctx, d.ID, "org-1")
	if err != nil || ok {
		t.Errorf("VerifyDomain with wrong token = %v, %v", ok, err)
	}

	issued = d.VerificationToken
	ok, err = svc.VerifyDomain(ctx, d.ID, "org-1")
	if err != nil || !ok {
		t.Fatalf("VerifyDomain = %v, %v", ok, err)
	}
	if verified, _ := db.IsDomainVerified("org-1", "shop.example.com"); !verified {
		t.Error("verified flag not persisted")
	}

	// Already-verified domains short-circuit without another lookup.
	issued = "wrong-again"
	ok, err = svc.VerifyDomain(ctx, d.ID, "org-1")
	if err != nil || !ok {
		t.Errorf("re-verify = %v, %v", ok, err)
	}

	if _, err := svc.VerifyDomain(ctx, d.ID, "org-2"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("cross-tenant verify err = %v, want ErrNotFound", err)
	}
}

// tokenVerifier approves when the published token matches the expected one.
type tokenVerifier struct {
	token *string
}

func (v tokenVerifier) Verify(_ context.Context, _, token string) (bool, error) {
	return token == *v.token, nil
}

func TestTXTVerifier(t *testing.T) {
	v := pipeline.NewTXTVerifier(fakeResolver{
		"ok.example.com":    {"unrelated", "semantify-verify=tok-1"},
		"empty.example.com": {},
	})
	ctx := context.Background()

	ok, err := v.Verify(ctx, "ok.example.com", "tok-1")
	if err != nil || !ok {
		t.Errorf("matching record = %v, %v", ok, err)
	}
	ok, err = v.Verify(ctx, "ok.example.com", "tok-2")
	if err != nil || ok {
		t.Errorf("wrong token = %v, %v", ok, err)
	}
	ok, err = v.Verify(ctx, "empty.example.com", "tok-1")
	if err != nil || ok {
		t.Errorf("no records = %v, %v", ok, err)
	}
	if _, err := v.Verify(ctx, "missing.example.com", "tok-1"); err == nil {
		t.Error("lookup failure should surface as an error")
	}
}

type fakeResolver map[string][]string

func (r fakeResolver) LookupTXT(_ context.Context, name string) ([]string, error) {
	recs, ok := r[name]
	if !ok {
		return nil, errors.New("no such host")
	}
	return recs, nil
}
