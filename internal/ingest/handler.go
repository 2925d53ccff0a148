package ingest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/sensorbridge/internal/audit"
	"github.com/nerrad567/sensorbridge/internal/forwarder"
	"github.com/nerrad567/sensorbridge/internal/infrastructure/logging"
	"github.com/nerrad567/sensorbridge/internal/lineproto"
	"github.com/nerrad567/sensorbridge/internal/metrics"
	"github.com/nerrad567/sensorbridge/internal/reading"
)

// maxAuditedLine caps how much of a malformed line is copied into audit details.
const maxAuditedLine = 256

// session is the state of one client connection.
type session struct {
	srv    *Server
	conn   net.Conn
	id     string
	peer   string
	logger *logging.Logger

	ack   *bufio.Writer
	lines int
}

// handle owns conn until it closes.
func (s *Server) handle(ctx context.Context, conn net.Conn) {
	sess := &session{
		srv:  s,
		conn: conn,
		id:   uuid.NewString(),
		peer: conn.RemoteAddr().String(),
		ack:  bufio.NewWriter(conn),
	}
	sess.logger = s.logger.With("conn_id", sess.id, "peer", sess.peer)

	s.metrics.ConnectionOpened()
	sess.record(ctx, audit.ActionConnectionOpened, nil)

	reason := "eof"
	defer func() {
		if r := recover(); r != nil {
			reason = "panic"
			sess.logger.Error("connection handler panic recovered", "panic", r)
			sess.record(ctx, audit.ActionHandlerPanic, map[string]any{
				"panic": fmt.Sprint(r),
				"stack": string(debug.Stack()),
			})
		}
		conn.Close() //nolint:errcheck // closing on every exit path
		s.metrics.ConnectionClosed()
		sess.record(ctx, audit.ActionConnectionClosed, map[string]any{
			"reason": reason,
			"lines":  sess.lines,
		})
	}()

	if err := sess.readLoop(ctx); err != nil {
		reason = err.Error()
	}
}

// readLoop frames input by newline and dispatches each line. It returns
// nil on EOF and the read error otherwise.
func (c *session) readLoop(ctx context.Context) error {
	scanner := bufio.NewScanner(c.conn)
	// +2 leaves room for a CRLF terminator.
	limit := c.srv.cfg.MaxLineBytes + 2
	scanner.Buffer(make([]byte, 0, min(limit, 4096)), limit)

	// ScanLines strips the terminator and a trailing \r, and yields a
	// final unterminated line at EOF.
	for scanner.Scan() {
		c.lines++
		c.dispatch(ctx, scanner.Bytes())
	}

	err := scanner.Err()
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	if errors.Is(err, bufio.ErrTooLong) {
		c.logger.Warn("line exceeds limit, closing connection", "max_line_bytes", c.srv.cfg.MaxLineBytes)
	}
	return err
}

// dispatch runs one line through the pipeline. line is only valid for
// the duration of the call.
func (c *session) dispatch(ctx context.Context, line []byte) {
	r, err := reading.Decode(line)
	if err != nil {
		c.srv.metrics.Line(metrics.ResultMalformed)
		c.record(ctx, audit.ActionReadingMalformed, map[string]any{
			"error": err.Error(),
			"line":  truncate(line, maxAuditedLine),
		})
		return
	}

	c.record(ctx, audit.ActionReadingReceived, readingDetails(r))

	if err := reading.Validate(r); err != nil {
		c.srv.metrics.Line(metrics.ResultRejected)
		details := readingDetails(r)
		details["error"] = err.Error()
		c.record(ctx, audit.ActionReadingRejected, details)
		return
	}

	res := c.srv.resolver.Resolve(r.Timestamp)
	if res.FellBack {
		c.record(ctx, audit.ActionTimestampFallback, map[string]any{
			"timestamp":   r.Timestamp,
			"reason":      res.Reason.Error(),
			"resolved_ns": res.Nanos,
		})
	}

	point := lineproto.Encode(r, res.Nanos)
	out := c.srv.fwd.Forward(ctx, point)
	c.srv.metrics.Forward(out)
	c.recordOutcome(ctx, point, out)
	c.srv.metrics.Line(metrics.ResultAccepted)

	c.publish(ctx, Accepted{
		SensorReading:  r,
		ConnID:         c.id,
		TimestampNanos: res.Nanos,
		Forward:        out.Kind.String(),
	})

	c.echo(ctx, line)
}

func (c *session) recordOutcome(ctx context.Context, point string, out forwarder.Outcome) {
	details := map[string]any{
		"point":       point,
		"duration_ms": out.Duration.Milliseconds(),
	}
	switch out.Kind {
	case forwarder.Delivered:
		details["status"] = out.Status
		c.record(ctx, audit.ActionForwardDelivered, details)
	case forwarder.Rejected:
		details["status"] = out.Status
		details["body"] = out.Body
		c.record(ctx, audit.ActionForwardRejected, details)
	default:
		details["error"] = fmt.Sprint(out.Err)
		c.record(ctx, audit.ActionForwardFailed, details)
	}
}

func (c *session) publish(ctx context.Context, a Accepted) {
	for _, p := range c.srv.publishers {
		if err := p.Publish(ctx, a); err != nil {
			c.srv.metrics.PublishFailed(p.Name())
			c.logger.Warn("live feed publish failed", "publisher", p.Name(), "error", err)
		}
	}
}

// echo writes line back followed by a newline. Failures are audited and
// the buffered writer is reset so the next echo starts clean.
func (c *session) echo(ctx context.Context, line []byte) {
	if t := c.srv.cfg.AckWriteTimeout; t > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(t)) //nolint:errcheck // a failed deadline surfaces on write
	}

	_, err := c.ack.Write(line)
	if err == nil {
		err = c.ack.WriteByte('\n')
	}
	if err == nil {
		err = c.ack.Flush()
	}
	if err == nil {
		return
	}

	c.ack.Reset(c.conn)
	c.srv.metrics.AckFailed()
	c.record(ctx, audit.ActionAckFailed, map[string]any{"error": err.Error()})
}

// record emits an audit event for this connection. A failing sink is
// logged and otherwise ignored.
func (c *session) record(ctx context.Context, action audit.Action, details map[string]any) {
	err := c.srv.recorder.Record(context.WithoutCancel(ctx), audit.Event{
		Action:  action,
		ConnID:  c.id,
		Peer:    c.peer,
		Details: details,
		Time:    time.Now(),
	})
	if err != nil {
		c.logger.Warn("audit record failed", "action", string(action), "error", err)
	}
}

func readingDetails(r reading.SensorReading) map[string]any {
	return map[string]any{
		"timestamp":           r.Timestamp,
		"sensor_id":           r.SensorID,
		"location":            r.Location,
		"process_stage":       r.ProcessStage,
		"temperature_celsius": r.TemperatureCelsius,
		"humidity_percent":    r.HumidityPercent,
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
