package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/postpilot/content-system/internal/core/domain"
	"github.com/postpilot/content-system/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Scripted stage client
// ---------------------------------------------------------------------------

type stageReply struct {
	out string
	err error
}

// stubStageClient returns scripted replies per stage, in order. The last
// reply repeats once a script is exhausted.
type stubStageClient struct {
	niche, topic, post []stageReply

	nicheCalls, topicCalls, postCalls int
}

func takeReply(script []stageReply, call int) stageReply {
	if len(script) == 0 {
		return stageReply{out: "unscripted"}
	}
	if call >= len(script) {
		return script[len(script)-1]
	}
	return script[call]
}

func (s *stubStageClient) DetectNiche(_ context.Context, _ string) (string, error) {
	r := takeReply(s.niche, s.nicheCalls)
	s.nicheCalls++
	return r.out, r.err
}

func (s *stubStageClient) AdaptTopic(_ context.Context, _, _ string) (string, error) {
	r := takeReply(s.topic, s.topicCalls)
	s.topicCalls++
	return r.out, r.err
}

func (s *stubStageClient) GeneratePost(_ context.Context, _ ports.PostPrompt) (string, error) {
	r := takeReply(s.post, s.postCalls)
	s.postCalls++
	return r.out, r.err
}

type stubSink struct {
	alerts []ports.Notification
}

func (s *stubSink) Notify(_ context.Context, n ports.Notification) {
	s.alerts = append(s.alerts, n)
}

func ok(out string) stageReply { return stageReply{out: out} }

func failWith(stage domain.Stage, kind domain.StageErrorKind) stageReply {
	return stageReply{err: domain.NewStageError(stage, kind, errors.New("boom"))}
}

func newPipelineFixture(stages *stubStageClient) (*PipelineService, *stubUserRepo, *stubSink) {
	users := newStubUserRepo()
	sink := &stubSink{}
	svc := NewPipelineService(stages, users, sink, StagePolicy{Timeout: time.Second, Retries: 1}, discardLogger)
	return svc, users, sink
}

func request(niche string) domain.GenerationRequest {
	return domain.GenerationRequest{
		UserID:   "user-1",
		ChatID:   100,
		Niche:    niche,
		Topic:    "daily habits",
		Question: "What changed for you?",
		Answer:   "I wake at dawn and write before anything else",
	}
}

// ---------------------------------------------------------------------------
// Full run
// ---------------------------------------------------------------------------

func TestPipelineRun_AllStagesSucceed(t *testing.T) {
	stages := &stubStageClient{
		niche: []stageReply{ok("fitness")},
		topic: []stageReply{ok("habits for athletes")},
		post:  []stageReply{ok("the post")},
	}
	svc, users, sink := newPipelineFixture(stages)
	users.add(&domain.User{ID: "user-1", State: domain.StateGenerating})

	res, err := svc.Run(context.Background(), request(""))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Content != "the post" {
		t.Errorf("content = %q", res.Content)
	}
	if res.Niche != "fitness" || res.AdaptedTopic != "habits for athletes" {
		t.Errorf("niche/topic = %q/%q", res.Niche, res.AdaptedTopic)
	}
	if len(res.Degraded) != 0 {
		t.Errorf("no stage should degrade, got %v", res.Degraded)
	}
	if len(sink.alerts) != 0 {
		t.Errorf("no alerts expected, got %d", len(sink.alerts))
	}

	// Detected niche must be cached on the user.
	u, _ := users.FindByID(context.Background(), "user-1")
	if u.Niche != "fitness" {
		t.Errorf("detected niche not cached, got %q", u.Niche)
	}
}

func TestPipelineRun_KnownNicheSkipsDetection(t *testing.T) {
	stages := &stubStageClient{
		topic: []stageReply{ok("adapted")},
		post:  []stageReply{ok("the post")},
	}
	svc, _, _ := newPipelineFixture(stages)

	res, err := svc.Run(context.Background(), request("fitness"))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stages.nicheCalls != 0 {
		t.Errorf("niche stage must be skipped, got %d calls", stages.nicheCalls)
	}
	if res.Niche != "fitness" {
		t.Errorf("niche = %q", res.Niche)
	}
}

func TestPipelineRun_PreAdaptedTopicSkipsStage(t *testing.T) {
	stages := &stubStageClient{
		topic: []stageReply{ok("re-adapted, must not be used")},
		post:  []stageReply{ok("the post")},
	}
	svc, _, _ := newPipelineFixture(stages)

	req := request("fitness")
	req.TopicAdapted = true

	res, err := svc.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stages.topicCalls != 0 {
		t.Errorf("topic stage must be skipped for a pre-adapted topic, got %d calls", stages.topicCalls)
	}
	if res.AdaptedTopic != req.Topic {
		t.Errorf("adapted topic = %q, want the delivered topic %q", res.AdaptedTopic, req.Topic)
	}
}

// ---------------------------------------------------------------------------
// Fallbacks
// ---------------------------------------------------------------------------

func TestPipelineRun_NicheFallsBackToGeneric(t *testing.T) {
	stages := &stubStageClient{
		niche: []stageReply{failWith(domain.StageNiche, domain.StageFatal)},
		topic: []stageReply{ok("adapted")},
		post:  []stageReply{ok("the post")},
	}
	svc, users, sink := newPipelineFixture(stages)
	users.add(&domain.User{ID: "user-1"})

	res, err := svc.Run(context.Background(), request(""))
	if err != nil {
		t.Fatalf("Run must degrade, not fail: %v", err)
	}
	if res.Niche != domain.FallbackNiche {
		t.Errorf("niche = %q, want %q", res.Niche, domain.FallbackNiche)
	}
	if len(res.Degraded) != 1 || res.Degraded[0] != domain.StageNiche {
		t.Errorf("degraded = %v", res.Degraded)
	}
	if len(sink.alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(sink.alerts))
	}

	// The fallback label must not be cached: detection is retried next run.
	u, _ := users.FindByID(context.Background(), "user-1")
	if u.Niche != "" {
		t.Errorf("fallback niche must not be persisted, got %q", u.Niche)
	}
}

func TestPipelineRun_TopicFallsBackVerbatim(t *testing.T) {
	stages := &stubStageClient{
		topic: []stageReply{failWith(domain.StageTopic, domain.StageFatal)},
		post:  []stageReply{ok("the post")},
	}
	svc, _, sink := newPipelineFixture(stages)

	res, err := svc.Run(context.Background(), request("fitness"))
	if err != nil {
		t.Fatalf("Run must degrade, not fail: %v", err)
	}
	if res.AdaptedTopic != "daily habits" {
		t.Errorf("adapted topic = %q, want the verbatim topic", res.AdaptedTopic)
	}
	if len(sink.alerts) != 1 {
		t.Errorf("expected 1 alert, got %d", len(sink.alerts))
	}
}

func TestPipelineRun_PostFailureIsTerminal(t *testing.T) {
	stages := &stubStageClient{
		topic: []stageReply{ok("adapted")},
		post:  []stageReply{failWith(domain.StagePost, domain.StageFatal)},
	}
	svc, _, sink := newPipelineFixture(stages)

	_, err := svc.Run(context.Background(), request("fitness"))
	if err == nil {
		t.Fatal("post-stage failure must fail the run")
	}
	var se *domain.StageError
	if !errors.As(err, &se) || se.Stage != domain.StagePost {
		t.Errorf("expected a post StageError, got %v", err)
	}
	if len(sink.alerts) != 1 {
		t.Errorf("expected 1 alert, got %d", len(sink.alerts))
	}
}

// ---------------------------------------------------------------------------
// Retry policy
// ---------------------------------------------------------------------------

func TestPipelineRun_TransientFailureRetriedOnce(t *testing.T) {
	stages := &stubStageClient{
		topic: []stageReply{ok("adapted")},
		post: []stageReply{
			failWith(domain.StagePost, domain.StageTransient),
			ok("the post"),
		},
	}
	svc, _, _ := newPipelineFixture(stages)

	res, err := svc.Run(context.Background(), request("fitness"))
	if err != nil {
		t.Fatalf("retry should have recovered the run: %v", err)
	}
	if stages.postCalls != 2 {
		t.Errorf("post stage calls = %d, want 2", stages.postCalls)
	}
	if res.Content != "the post" {
		t.Errorf("content = %q", res.Content)
	}
}

func TestPipelineRun_TimeoutRetriedThenTerminal(t *testing.T) {
	stages := &stubStageClient{
		topic: []stageReply{ok("adapted")},
		post:  []stageReply{failWith(domain.StagePost, domain.StageTimeout)},
	}
	svc, _, sink := newPipelineFixture(stages)

	_, err := svc.Run(context.Background(), request("fitness"))
	if err == nil {
		t.Fatal("exhausted retries must fail the run")
	}
	if stages.postCalls != 2 {
		t.Errorf("post stage calls = %d, want 2 (original + one retry)", stages.postCalls)
	}
	if len(sink.alerts) != 1 || sink.alerts[0].Kind != ports.NotifyPipelineTimeout {
		t.Errorf("expected a timeout alert, got %+v", sink.alerts)
	}
}

func TestPipelineRun_FatalFailureNotRetried(t *testing.T) {
	stages := &stubStageClient{
		topic: []stageReply{ok("adapted")},
		post:  []stageReply{failWith(domain.StagePost, domain.StageFatal)},
	}
	svc, _, _ := newPipelineFixture(stages)

	_, _ = svc.Run(context.Background(), request("fitness"))
	if stages.postCalls != 1 {
		t.Errorf("fatal failures must not be retried, got %d calls", stages.postCalls)
	}
}

func TestPipelineRun_CancelledContextStopsRun(t *testing.T) {
	stages := &stubStageClient{
		topic: []stageReply{failWith(domain.StageTopic, domain.StageTransient)},
		post:  []stageReply{ok("never reached")},
	}
	svc, _, _ := newPipelineFixture(stages)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Run(ctx, request("fitness"))
	if err == nil {
		t.Fatal("cancelled run must fail")
	}
	if stages.postCalls != 0 {
		t.Errorf("post stage must not run after cancellation, got %d calls", stages.postCalls)
	}
}

// ---------------------------------------------------------------------------
// Single-stage entry points
// ---------------------------------------------------------------------------

func TestDetectNiche_CachesResult(t *testing.T) {
	stages := &stubStageClient{niche: []stageReply{ok("woodworking")}}
	svc, users, _ := newPipelineFixture(stages)
	users.add(&domain.User{ID: "user-1"})

	out, err := svc.DetectNiche(context.Background(), "user-1", "I build furniture")
	if err != nil {
		t.Fatalf("DetectNiche failed: %v", err)
	}
	if out != "woodworking" {
		t.Errorf("niche = %q", out)
	}
	u, _ := users.FindByID(context.Background(), "user-1")
	if u.Niche != "woodworking" {
		t.Errorf("niche not cached, got %q", u.Niche)
	}
}

func TestDetectNiche_FallbackNotCached(t *testing.T) {
	stages := &stubStageClient{niche: []stageReply{failWith(domain.StageNiche, domain.StageFatal)}}
	svc, users, sink := newPipelineFixture(stages)
	users.add(&domain.User{ID: "user-1"})

	out, err := svc.DetectNiche(context.Background(), "user-1", "I build furniture")
	if err != nil {
		t.Fatalf("DetectNiche must degrade, not fail: %v", err)
	}
	if out != domain.FallbackNiche {
		t.Errorf("niche = %q, want %q", out, domain.FallbackNiche)
	}
	u, _ := users.FindByID(context.Background(), "user-1")
	if u.Niche != "" {
		t.Errorf("fallback must not be cached, got %q", u.Niche)
	}
	if len(sink.alerts) != 1 {
		t.Errorf("expected 1 alert, got %d", len(sink.alerts))
	}
}

func TestAdaptTopic_FallbackReturnsVerbatim(t *testing.T) {
	stages := &stubStageClient{topic: []stageReply{failWith(domain.StageTopic, domain.StageFatal)}}
	svc, _, _ := newPipelineFixture(stages)

	out, err := svc.AdaptTopic(context.Background(), "user-1", "daily habits", "fitness")
	if err != nil {
		t.Fatalf("AdaptTopic must degrade, not fail: %v", err)
	}
	if out != "daily habits" {
		t.Errorf("adapted = %q, want verbatim topic", out)
	}
}
