package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/Jalter-ego/react-project-criptoactivos-sub000/internal/domain"
)

// createFeedServer runs a test websocket endpoint that hands each accepted
// connection to handler.
func createFeedServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))
}

func httpToWS(url string) string {
	return strings.Replace(url, "http://", "ws://", 1)
}

func TestTransport_SubscribeSentOnConnect(t *testing.T) {
	received := make(chan commandMsg, 4)

	server := createFeedServer(t, func(conn *websocket.Conn) {
		for {
			var cmd commandMsg
			if err := conn.ReadJSON(&cmd); err != nil {
				return
			}
			received <- cmd
		}
	})
	defer server.Close()

	tr := NewTransport(httpToWS(server.URL))
	tr.Subscribe("BTC-USD") // registered before connect; replayed on connect

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	tr.Start(ctx)
	defer tr.Stop()

	select {
	case cmd := <-received:
		if cmd.Op != "subscribe" || cmd.Symbol != "BTC-USD" {
			t.Errorf("unexpected command %+v", cmd)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server never received subscribe")
	}
}

func TestTransport_DeliversTicks(t *testing.T) {
	server := createFeedServer(t, func(conn *websocket.Conn) {
		var cmd commandMsg
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}
		payload, _ := json.Marshal(tickMsg{Type: "tick", Symbol: cmd.Symbol, Price: decimal.NewFromInt(31000), TsMS: 1700000000000})
		conn.WriteMessage(websocket.TextMessage, payload)
		time.Sleep(200 * time.Millisecond)
	})
	defer server.Close()

	tr := NewTransport(httpToWS(server.URL))
	sub := tr.Subscribe("BTC-USD")

	got := make(chan struct{}, 1)
	sub.OnTick(func(_ domain.PriceTick) { got <- struct{}{} })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	tr.Start(ctx)
	defer tr.Stop()

	select {
	case <-got:
		tk, ok := sub.Latest()
		if !ok || tk.Symbol != "BTC-USD" {
			t.Errorf("unexpected latest tick %+v ok=%v", tk, ok)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("tick was not delivered")
	}
}

func TestTransport_ResubscribesAfterReconnect(t *testing.T) {
	subscribes := make(chan string, 4)

	server := createFeedServer(t, func(conn *websocket.Conn) {
		var cmd commandMsg
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}
		subscribes <- cmd.Symbol
		// Drop the connection right away to force a reconnect.
	})
	defer server.Close()

	tr := NewTransport(httpToWS(server.URL))
	sub := tr.Subscribe("BTC-USD")
	defer sub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	tr.Start(ctx)
	defer tr.Stop()

	for i := 0; i < 2; i++ {
		select {
		case sym := <-subscribes:
			if sym != "BTC-USD" {
				t.Errorf("unexpected symbol %q", sym)
			}
		case <-time.After(4 * time.Second):
			t.Fatalf("subscribe #%d never arrived", i+1)
		}
	}
}
