package handlers_test

import (
	"net"
	"testing"
	"time"

	"github.com/anjiri1684/counsel_hub/database"
	"github.com/anjiri1684/counsel_hub/models"
	"github.com/anjiri1684/counsel_hub/notifications"
	"github.com/anjiri1684/counsel_hub/testsupport"
	"github.com/anjiri1684/counsel_hub/websocket"
	wsclient "github.com/fasthttp/websocket"
)

type wsMessage struct {
	Type    string `json:"type"`
	ID      string `json:"id"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

func dialWs(t *testing.T) *wsclient.Conn {
	t.Helper()
	app := testsupport.NewApp(t)
	websocket.Start()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go app.Listener(ln)
	t.Cleanup(func() { _ = app.Shutdown() })

	conn, _, err := wsclient.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/api/v1/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readWs(t *testing.T, conn *wsclient.Conn) wsMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg wsMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestWebsocketPushesOutboxNotifications(t *testing.T) {
	conn := dialWs(t)
	client := testsupport.CreateClient(t)

	if err := conn.WriteJSON(map[string]string{"type": "auth", "token": testsupport.Token(t, client.ID, models.RoleClient)}); err != nil {
		t.Fatalf("auth: %v", err)
	}
	if msg := readWs(t, conn); msg.Type != "ready" {
		t.Fatalf("handshake reply = %+v", msg)
	}

	if err := conn.WriteJSON(map[string]string{"type": "ping"}); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if msg := readWs(t, conn); msg.Type != "pong" {
		t.Fatalf("ping reply = %+v", msg)
	}

	if err := notifications.Enqueue(database.DB, notifications.ClientRecipient(client), notifications.TemplateWelcome, map[string]any{"Name": client.FullName}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	d := notifications.NewDispatcher(database.DB, notifications.NoopMailer{})
	d.Now = func() time.Time { return time.Now().UTC().Add(time.Second) }
	d.Notify = websocket.Notify
	if n, err := d.ProcessPending(t.Context()); err != nil || n != 1 {
		t.Fatalf("dispatch: %d (%v)", n, err)
	}

	var stored models.Notification
	database.DB.First(&stored, "recipient_id = ?", client.ID)
	msg := readWs(t, conn)
	if msg.Type != "notification" || msg.ID != stored.ID.String() || msg.Subject != stored.Subject {
		t.Fatalf("pushed %+v, want notification %s", msg, stored.ID)
	}
}

func TestWebsocketRejectsBadToken(t *testing.T) {
	conn := dialWs(t)

	if err := conn.WriteJSON(map[string]string{"type": "auth", "token": "not-a-token"}); err != nil {
		t.Fatalf("auth: %v", err)
	}
	if msg := readWs(t, conn); msg.Type != "error" || msg.Message != "Invalid token" {
		t.Fatalf("reply = %+v", msg)
	}
}
