// Copyright (c) 2026 The StakeVault developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package subscriptions streams registry transition notifications over
// websocket, so monitors learn about assignments the moment they commit.
package subscriptions

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/stakevault/vault/api/utils"
	"github.com/stakevault/vault/log"
	"github.com/stakevault/vault/registry"
	"github.com/stakevault/vault/vault"
)

var logger = log.WithContext("pkg", "subscriptions")

const (
	// eventQueueLen bounds the per-connection event queue. The forwarder
	// drops events for a subscriber that stalls longer than the queue
	// absorbs, so one slow connection never backs up the shared feed.
	eventQueueLen = 64

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

type Subscriptions struct {
	reg      *registry.Registry
	upgrader websocket.Upgrader
	done     chan struct{}
}

func New(reg *registry.Registry) *Subscriptions {
	return &Subscriptions{
		reg: reg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		done: make(chan struct{}),
	}
}

// Close disconnects all subscribers.
func (s *Subscriptions) Close() {
	close(s.done)
}

// eventFilter narrows the stream per subscriber, parsed from query params.
type eventFilter struct {
	evType *registry.EventType
	wallet *vault.Address
}

func parseFilter(req *http.Request) (*eventFilter, error) {
	var f eventFilter
	if t := req.URL.Query().Get("type"); t != "" {
		evType, err := registry.ParseEventType(t)
		if err != nil {
			return nil, errors.WithMessage(err, "type")
		}
		f.evType = &evType
	}
	if w := req.URL.Query().Get("wallet"); w != "" {
		addr, err := vault.ParseAddress(w)
		if err != nil {
			return nil, errors.WithMessage(err, "wallet")
		}
		f.wallet = addr
	}
	return &f, nil
}

func (f *eventFilter) match(ev *registry.Event) bool {
	if f.evType != nil && ev.Type != *f.evType {
		return false
	}
	if f.wallet != nil && ev.Wallet != *f.wallet {
		return false
	}
	return true
}

func (s *Subscriptions) handleSubscribeEvents(w http.ResponseWriter, req *http.Request) error {
	filter, err := parseFilter(req)
	if err != nil {
		return utils.BadRequest(err)
	}

	conn, err := s.upgrader.Upgrade(w, req, nil)
	if err != nil {
		// the upgrader has already written an error response
		return nil
	}
	defer conn.Close()

	feedCh := make(chan *registry.Event, eventQueueLen)
	sub := s.reg.SubscribeEvents(feedCh)
	defer sub.Unsubscribe()

	// the forwarder keeps draining the feed while the write pump is stuck
	// in a slow WriteJSON, dropping frames once the queue is full
	events := make(chan *registry.Event, eventQueueLen)
	stopForward := make(chan struct{})
	defer close(stopForward)
	go func() {
		for {
			select {
			case ev := <-feedCh:
				select {
				case events <- ev:
				default:
					logger.Debug("dropping event for slow subscriber", "seq", ev.Seq, "remote", conn.RemoteAddr())
				}
			case <-stopForward:
				return
			}
		}
	}()

	// the read loop only serves close/pong detection; subscribers never
	// send payloads.
	closed := make(chan struct{})
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pingTicker := time.NewTicker(pingPeriod)
	defer pingTicker.Stop()

	for {
		select {
		case ev := <-events:
			if !filter.match(ev) {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(convertEvent(ev)); err != nil {
				logger.Debug("failed to write event", "err", err)
				return nil
			}
		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		case <-closed:
			return nil
		case <-s.done:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return nil
		case <-req.Context().Done():
			return nil
		case err := <-sub.Err():
			return err
		}
	}
}

func (s *Subscriptions) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/events").
		Methods(http.MethodGet).
		Name("GET /subscriptions/events").
		HandlerFunc(utils.WrapHandlerFunc(s.handleSubscribeEvents))
}
