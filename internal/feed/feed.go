// Package feed streams world changes to headless renderers over websocket.
package feed

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/zstd"

	"github.com/OCharnyshevich/voxelworld/internal/world/chunk"
	"github.com/OCharnyshevich/voxelworld/internal/world/coord"
	"github.com/OCharnyshevich/voxelworld/internal/world/material"
	"github.com/OCharnyshevich/voxelworld/internal/world/object"
)

const clientBuffer = 256

type client struct {
	id   uint64
	out  chan []byte
	conn *websocket.Conn
}

// Feed is a world observer that broadcasts every notification to the
// connected websocket clients. Clients that fall behind lose messages.
type Feed struct {
	log      *slog.Logger
	enc      *zstd.Encoder
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[uint64]*client
	nextID  uint64

	seq     atomic.Uint64
	dropped atomic.Uint64
	raw     []byte
}

func New(log *slog.Logger) (*Feed, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, err
	}
	return &Feed{
		log: log.With("component", "feed"),
		enc: enc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[uint64]*client),
	}, nil
}

// Clients returns the number of connected clients.
func (f *Feed) Clients() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

// Dropped returns how many messages slow clients have missed.
func (f *Feed) Dropped() uint64 { return f.dropped.Load() }

func (f *Feed) register(conn *websocket.Conn) *client {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	c := &client{id: f.nextID, out: make(chan []byte, clientBuffer), conn: conn}
	f.clients[c.id] = c
	return c
}

func (f *Feed) unregister(c *client) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.clients, c.id)
}

func (f *Feed) publish(m Message) {
	m.Seq = f.seq.Add(1)
	b, err := json.Marshal(m)
	if err != nil {
		f.log.Error("encode message", "type", m.Type, "error", err)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.clients {
		select {
		case c.out <- b:
		default:
			f.dropped.Add(1)
		}
	}
}

func (f *Feed) chunkMessage(typ string, c *chunk.Chunk) Message {
	m := Message{Type: typ, Chunk: vec3i(c.Pos), ChunkSize: c.Size}
	ok := c.ReadVoxels(func(v []material.ID) {
		if cap(f.raw) < len(v) {
			f.raw = make([]byte, len(v))
		}
		f.raw = f.raw[:len(v)]
		for i, id := range v {
			f.raw[i] = byte(id)
		}
	})
	if ok {
		m.Revision = c.Revision()
		m.Voxels = base64.StdEncoding.EncodeToString(f.enc.EncodeAll(f.raw, nil))
	}
	return m
}

func (f *Feed) ChunkLoaded(c *chunk.Chunk) {
	if f.Clients() == 0 {
		return
	}
	f.publish(f.chunkMessage(TypeChunkLoaded, c))
}

func (f *Feed) ChunkModified(c *chunk.Chunk) {
	if f.Clients() == 0 {
		return
	}
	f.publish(f.chunkMessage(TypeChunkModified, c))
}

func (f *Feed) ChunkUnloaded(pos coord.Vec3i) {
	f.publish(Message{Type: TypeChunkUnloaded, Chunk: vec3i(pos)})
}

func (f *Feed) VoxelDestroyed(pos mgl32.Vec3) {
	f.publish(Message{Type: TypeVoxelDestroyed, Position: &[3]float32{pos.X(), pos.Y(), pos.Z()}})
}

func (f *Feed) ObjectSpawned(o *object.Object) {
	origin := o.Origin()
	q := origin.Orientation
	m := Message{
		Type:        TypeObjectSpawned,
		Object:      uint64(o.ID),
		Material:    uint8(o.Material),
		VoxelSize:   o.VoxelSize,
		Position:    &[3]float32{origin.Position.X(), origin.Position.Y(), origin.Position.Z()},
		Orientation: &[4]float32{q.W, q.V.X(), q.V.Y(), q.V.Z()},
	}
	for _, v := range o.Voxels() {
		m.Local = append(m.Local, [3]int{v.X, v.Y, v.Z})
	}
	f.publish(m)
}

func (f *Feed) ObjectRemoved(o *object.Object) {
	f.publish(Message{Type: TypeObjectRemoved, Object: uint64(o.ID)})
}

func vec3i(p coord.Vec3i) *[3]int { return &[3]int{p.X, p.Y, p.Z} }

// Handler upgrades loopback requests to a websocket and streams messages
// until the client goes away.
func (f *Feed) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		conn, err := f.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		c := f.register(conn)
		defer f.unregister(c)
		f.log.Info("renderer connected", "client", c.id, "remote", r.RemoteAddr)

		hello, _ := json.Marshal(Message{Type: TypeHello, Version: Version})
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, hello); err != nil {
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b := <-c.out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						return
					}
				}
			}
		}()

		// Clients send nothing; reading detects the close.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		cancel()
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
		f.log.Info("renderer disconnected", "client", c.id)
	}
}

// Serve listens on addr and serves the feed at /feed until ctx is done.
func (f *Feed) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/feed", f.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	f.log.Info("feed listening", "addr", ln.Addr().String())

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close disconnects every client and releases the encoder.
func (f *Feed) Close() {
	f.mu.Lock()
	for _, c := range f.clients {
		if c.conn != nil {
			_ = c.conn.Close()
		}
	}
	f.mu.Unlock()
	_ = f.enc.Close()
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
