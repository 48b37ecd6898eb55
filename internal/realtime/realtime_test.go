package realtime

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"visitor_backend/internal/appointments/domain"
	"visitor_backend/internal/events"
	"visitor_backend/internal/notification/inapp"
	"visitor_backend/platform/httpkit"
	"visitor_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type emitted struct {
	room    string
	event   string
	payload any
}

type recordingTransport struct {
	mu   sync.Mutex
	sent []emitted
	fail bool
}

func (r *recordingTransport) EmitToRoom(_ context.Context, room, event string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, emitted{room: room, event: event, payload: payload})
	if r.fail {
		return errors.New("transport down")
	}
	return nil
}

func (r *recordingTransport) EmitBroadcast(ctx context.Context, tenantID uuid.UUID, event string, payload any) error {
	return r.EmitToRoom(ctx, TenantRoom(tenantID), event, payload)
}

func (r *recordingTransport) to(room string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.sent {
		if e.room == room {
			out = append(out, e.event)
		}
	}
	return out
}

type recordingRecorder struct {
	records []inapp.RecordParams
}

func (r *recordingRecorder) Record(_ context.Context, p inapp.RecordParams) {
	r.records = append(r.records, p)
}

func TestAudience(t *testing.T) {
	admin := uuid.New()
	employee := uuid.New()

	tests := []struct {
		name  string
		kind  Kind
		actor domain.Actor
		want  []uuid.UUID
	}{
		{"admin creates", KindCreated, domain.ActorAdmin, []uuid.UUID{employee}},
		{"employee creates", KindCreated, domain.ActorEmployee, []uuid.UUID{admin}},
		{"visitor creates", KindCreated, domain.ActorVisitor, []uuid.UUID{admin, employee}},
		{"admin changes status", KindStatusChange, domain.ActorAdmin, []uuid.UUID{employee}},
		{"employee changes status", KindStatusChange, domain.ActorEmployee, []uuid.UUID{admin}},
		{"approval link changes status", KindStatusChange, domain.ActorVisitor, []uuid.UUID{employee}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Audience(tt.kind, tt.actor, admin, &employee)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestAudienceSkipsUnlinkedEmployee(t *testing.T) {
	admin := uuid.New()
	if got := Audience(KindCreated, domain.ActorAdmin, admin, nil); len(got) != 0 {
		t.Fatalf("expected nobody, got %v", got)
	}
	if got := Audience(KindCreated, domain.ActorVisitor, admin, nil); len(got) != 1 || got[0] != admin {
		t.Fatalf("expected only the admin, got %v", got)
	}
	if got := Audience(KindCreated, domain.ActorVisitor, admin, &admin); len(got) != 1 {
		t.Fatalf("expected one room when the admin is also the employee, got %v", got)
	}
}

func TestNotifierCreatedByVisitor(t *testing.T) {
	transport := &recordingTransport{}
	recorder := &recordingRecorder{}
	n := NewNotifier(transport, recorder, logger.NewNop())
	admin, employee, tenantID := uuid.New(), uuid.New(), uuid.New()

	err := n.Handle(context.Background(), events.AppointmentCreated{
		TenantID:          tenantID,
		AppointmentID:     uuid.New(),
		Status:            "pending",
		Actor:             string(domain.ActorVisitor),
		AdminAccountID:    admin,
		EmployeeAccountID: &employee,
		VisitorName:       "Lotte",
		ScheduledDate:     "2026-03-09",
		ScheduledTime:     "10:00",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, account := range []uuid.UUID{admin, employee} {
		got := transport.to(AccountRoom(account))
		if len(got) != 2 || got[0] != "appointment:created" || got[1] != EventNotification {
			t.Fatalf("account %s got %v", account, got)
		}
	}
	if got := transport.to(TenantRoom(tenantID)); len(got) != 1 || got[0] != EventRefresh {
		t.Fatalf("expected one refresh for the tenant, got %v", got)
	}
	if len(recorder.records) != 2 {
		t.Fatalf("expected an in-app notification per audience account, got %d", len(recorder.records))
	}
}

func TestNotifierSilentStatusChange(t *testing.T) {
	transport := &recordingTransport{}
	recorder := &recordingRecorder{}
	n := NewNotifier(transport, recorder, logger.NewNop())
	admin, employee, tenantID := uuid.New(), uuid.New(), uuid.New()

	_ = n.Handle(context.Background(), events.AppointmentStatusChanged{
		TenantID:          tenantID,
		AppointmentID:     uuid.New(),
		OldStatus:         "approved",
		NewStatus:         "approved",
		Actor:             string(domain.ActorEmployee),
		AdminAccountID:    admin,
		EmployeeAccountID: &employee,
		ShowNotification:  false,
	})

	if got := transport.to(AccountRoom(admin)); len(got) != 1 || got[0] != "appointment:statusChange" {
		t.Fatalf("expected only the data event for the admin, got %v", got)
	}
	if got := transport.to(AccountRoom(employee)); len(got) != 0 {
		t.Fatalf("the actor must not be told, got %v", got)
	}
	if len(recorder.records) != 0 {
		t.Fatalf("silent events must not persist notifications")
	}
	if got := transport.to(TenantRoom(tenantID)); len(got) != 1 {
		t.Fatalf("expected the tenant refresh, got %v", got)
	}
}

func TestNotifierSwallowsTransportErrors(t *testing.T) {
	transport := &recordingTransport{fail: true}
	n := NewNotifier(transport, nil, logger.NewNop())
	employee := uuid.New()

	err := n.Handle(context.Background(), events.AppointmentCreated{
		Actor:             string(domain.ActorAdmin),
		AdminAccountID:    uuid.New(),
		EmployeeAccountID: &employee,
	})
	if err != nil {
		t.Fatalf("expected errors to be logged only, got %v", err)
	}
	if len(transport.sent) != 3 {
		t.Fatalf("expected every emission to be attempted, got %d", len(transport.sent))
	}
}

func TestNotifierChangedOnlyRefreshes(t *testing.T) {
	transport := &recordingTransport{}
	n := NewNotifier(transport, nil, logger.NewNop())

	tenantID := uuid.New()
	_ = n.Handle(context.Background(), events.AppointmentChanged{TenantID: tenantID, AppointmentID: uuid.New(), Change: events.ChangeDeleted})

	if len(transport.sent) != 1 || transport.sent[0].room != TenantRoom(tenantID) {
		t.Fatalf("expected a single refresh broadcast, got %+v", transport.sent)
	}
	if p, ok := transport.sent[0].payload.(RefreshPayload); !ok || p.Reason != events.ChangeDeleted {
		t.Fatalf("unexpected payload %+v", transport.sent[0].payload)
	}
}

func TestHubDeliversToRooms(t *testing.T) {
	hub := NewHub(logger.NewNop())
	account, tenantID := uuid.New(), uuid.New()
	mine := hub.join(AccountRoom(account), TenantRoom(tenantID))
	colleague := hub.join(AccountRoom(uuid.New()), TenantRoom(tenantID))
	otherTenant := hub.join(AccountRoom(uuid.New()), TenantRoom(uuid.New()))

	_ = hub.EmitToRoom(context.Background(), AccountRoom(account), "appointment:created", map[string]string{"id": "1"})
	_ = hub.EmitBroadcast(context.Background(), tenantID, EventRefresh, map[string]string{})

	if len(mine.events) != 2 || len(colleague.events) != 1 || len(otherTenant.events) != 0 {
		t.Fatalf("unexpected deliveries mine=%d colleague=%d otherTenant=%d", len(mine.events), len(colleague.events), len(otherTenant.events))
	}
	msg := <-mine.events
	if msg.Event != "appointment:created" || string(msg.Payload) != `{"id":"1"}` {
		t.Fatalf("unexpected message %+v", msg)
	}

	hub.leave(mine)
	if hub.Clients(AccountRoom(account)) != 0 || hub.Clients(TenantRoom(tenantID)) != 1 {
		t.Fatalf("expected rooms to be cleaned up")
	}
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	hub := NewHub(logger.NewNop())
	tenantID := uuid.New()
	c := hub.join(TenantRoom(tenantID))

	for i := 0; i < clientBuffer+5; i++ {
		_ = hub.EmitBroadcast(context.Background(), tenantID, EventRefresh, i)
	}
	if len(c.events) != clientBuffer {
		t.Fatalf("expected the buffer to cap at %d, got %d", clientBuffer, len(c.events))
	}
}

func TestStreamHandler(t *testing.T) {
	hub := NewHub(logger.NewNop())
	account, tenantID := uuid.New(), uuid.New()

	router := gin.New()
	router.GET("/stream", func(c *gin.Context) {
		c.Set(httpkit.ContextUserIDKey, account)
		c.Set(httpkit.ContextTenantIDKey, tenantID)
	}, hub.Handler())
	server := httptest.NewServer(router)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/stream", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("unexpected content type %q", ct)
	}

	scanner := bufio.NewScanner(resp.Body)
	waitFor := func(prefix string) string {
		for scanner.Scan() {
			if line := scanner.Text(); strings.HasPrefix(line, prefix) {
				return line
			}
		}
		t.Fatalf("stream ended before %q: %v", prefix, scanner.Err())
		return ""
	}

	waitFor("event:connected")
	_ = hub.EmitToRoom(context.Background(), AccountRoom(account), EventNotification, ToastPayload{Title: "New appointment"})
	waitFor("event:" + EventNotification)
	if line := waitFor("data:"); !strings.Contains(line, "New appointment") {
		t.Fatalf("unexpected data line %q", line)
	}

	_ = hub.EmitBroadcast(context.Background(), uuid.New(), EventRefresh, RefreshPayload{Reason: "elsewhere"})
	_ = hub.EmitBroadcast(context.Background(), tenantID, EventRefresh, RefreshPayload{Reason: "ours"})
	waitFor("event:" + EventRefresh)
	if line := waitFor("data:"); !strings.Contains(line, "ours") {
		t.Fatalf("expected only the own tenant's refresh, got %q", line)
	}
}

func TestRedisTransportFansOut(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	hub := NewHub(logger.NewNop())
	transport := NewRedisTransport(client, "", hub, logger.NewNop())
	account := uuid.New()
	c := hub.join(AccountRoom(account))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- transport.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for mr.PubSubNumSub(defaultChannel)[defaultChannel] == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("subscriber never attached")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := transport.EmitToRoom(context.Background(), AccountRoom(account), "appointment:statusChange", AppointmentPayload{Status: "approved"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case msg := <-c.events:
		var payload AppointmentPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.Status != "approved" {
			t.Fatalf("unexpected payload %s", msg.Payload)
		}
		if msg.Event != "appointment:statusChange" {
			t.Fatalf("unexpected event %q", msg.Event)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("event never reached the local hub")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected run error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not stop")
	}
}

func TestNewRedisClientRejectsBadURL(t *testing.T) {
	if _, err := NewRedisClient("not a url", false); err == nil {
		t.Fatalf("expected an error")
	}
}
