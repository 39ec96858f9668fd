package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/juancollazo-ch/holded-order-monitor/internal/clock"
	"github.com/juancollazo-ch/holded-order-monitor/internal/config"
	apperrors "github.com/juancollazo-ch/holded-order-monitor/internal/errors"
	"github.com/juancollazo-ch/holded-order-monitor/internal/logging"
	"github.com/juancollazo-ch/holded-order-monitor/internal/models"
)

const dialTimeout = 30 * time.Second

// EmailNotifier envía un único correo multipart (texto + HTML) por ejecución.
// Con DryRun (TEST_EMAIL_ONLY) el correo se construye pero no se envía.
type EmailNotifier struct {
	cfg      config.Email
	DryRun   bool
	schedule config.Schedule
	loc      *time.Location
	clock    clock.Clock
	render   renderer
	logger   *zap.Logger

	// send entrega el mensaje ya construido; se sustituye en tests
	send func(ctx context.Context, msg []byte) error
}

func NewEmailNotifier(cfg *config.Config, clk clock.Clock, logger *zap.Logger) *EmailNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := &EmailNotifier{
		cfg:      cfg.Email,
		DryRun:   cfg.TestEmailOnly,
		schedule: cfg.Schedule,
		loc:      cfg.Location(),
		clock:    clk,
		render:   newRenderer(cfg.Location()),
		logger:   logger.With(zap.String("component", "email_notifier")),
	}
	n.send = n.deliver
	n.logger.Info("email sender initialized", zap.Bool("dry_run", n.DryRun))
	return n
}

// Subject: "<prefijo> N New Conway Bike Order(s) Detected"
func (n *EmailNotifier) Subject(count int) string {
	plural := "s"
	if count == 1 {
		plural = ""
	}
	subject := fmt.Sprintf("%d New Conway Bike Order%s Detected", count, plural)
	if n.cfg.SubjectPrefix != "" {
		subject = n.cfg.SubjectPrefix + " " + subject
	}
	return subject
}

func (n *EmailNotifier) Notify(ctx context.Context, orders []models.Order) (bool, error) {
	log := logging.For(ctx, n.logger)
	if len(orders) == 0 {
		log.Info("no orders to send notification for")
		return true, nil
	}

	subject := n.Subject(len(orders))
	msg, err := n.compose(subject, orders)
	if err != nil {
		log.Error("failed to render email", zap.Error(err))
		return false, apperrors.ErrInternal("render email", err)
	}

	if n.DryRun {
		log.Info("TEST_EMAIL_ONLY mode: email content prepared but not sent",
			zap.String("subject", subject),
			zap.Int("bytes", len(msg)),
		)
		return true, nil
	}

	log.Info("sending email notification", zap.String("subject", subject), zap.Int("orders", len(orders)))
	if err := n.send(ctx, msg); err != nil {
		log.Error("failed to send email notification", zap.Error(err))
		return false, err
	}
	log.Info("email notification sent successfully")
	return true, nil
}

// Test comprueba conexión y autenticación. En DryRun sólo valida que las plantillas
// se renderizan.
func (n *EmailNotifier) Test(ctx context.Context) error {
	if n.DryRun {
		_, err := n.compose(n.Subject(0), nil)
		if err != nil {
			return apperrors.ErrInternal("render email", err)
		}
		n.logger.Info("email test skipped in TEST_EMAIL_ONLY mode")
		return nil
	}

	c, err := n.session(ctx)
	if err != nil {
		n.logger.Error("email connection test failed", zap.Error(err))
		return err
	}
	defer c.Close()
	if err := c.Quit(); err != nil {
		return apperrors.ErrTransport("smtp quit", err)
	}
	n.logger.Info("email server connection test successful")
	return nil
}

func (n *EmailNotifier) compose(subject string, orders []models.Order) ([]byte, error) {
	now := n.clock.Now().In(n.loc)
	view := emailView{
		Payload:     models.NewNotificationPayload(orders, now),
		Period:      fmt.Sprintf("Last 24 hours (since yesterday %02d:%02d %s time)", n.schedule.Hour, n.schedule.Minute, n.loc.String()),
		GeneratedAt: now.Format("2006-01-02 15:04:05 MST"),
	}
	text, html, err := n.render.render(view)
	if err != nil {
		return nil, err
	}
	return buildMessage(n.cfg.From, n.cfg.TargetEmail, subject, text, html, now)
}

// buildMessage arma un multipart/alternative con ambas versiones en quoted-printable.
func buildMessage(from, to, subject, text, html string, date time.Time) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", date.Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", mw.Boundary())

	for _, part := range []struct {
		contentType string
		body        string
	}{
		{"text/plain; charset=utf-8", text},
		{"text/html; charset=utf-8", html},
	} {
		w, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {part.contentType},
			"Content-Transfer-Encoding": {"quoted-printable"},
		})
		if err != nil {
			return nil, err
		}
		qp := quotedprintable.NewWriter(w)
		if _, err := qp.Write([]byte(part.body)); err != nil {
			return nil, err
		}
		if err := qp.Close(); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// session abre una conexión SMTP con STARTTLS obligatorio y autenticación PLAIN.
func (n *EmailNotifier) session(ctx context.Context) (*smtp.Client, error) {
	addr := net.JoinHostPort(n.cfg.SMTPServer, strconv.Itoa(n.cfg.SMTPPort))
	dialer := &net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, apperrors.ErrTransport("smtp dial "+addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, n.cfg.SMTPServer)
	if err != nil {
		conn.Close()
		return nil, apperrors.ErrTransport("smtp handshake", err)
	}
	if ok, _ := c.Extension("STARTTLS"); !ok {
		c.Close()
		return nil, apperrors.ErrExternalAPI(0, "smtp server does not support STARTTLS", nil)
	}
	if err := c.StartTLS(&tls.Config{ServerName: n.cfg.SMTPServer}); err != nil {
		c.Close()
		return nil, apperrors.ErrTransport("smtp starttls", err)
	}
	auth := smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.SMTPServer)
	if err := c.Auth(auth); err != nil {
		c.Close()
		return nil, apperrors.ErrExternalAPI(0, "smtp authentication failed", err)
	}
	return c, nil
}

func (n *EmailNotifier) deliver(ctx context.Context, msg []byte) error {
	c, err := n.session(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Mail(n.cfg.From); err != nil {
		return apperrors.ErrExternalAPI(0, "smtp MAIL FROM", err)
	}
	if err := c.Rcpt(n.cfg.TargetEmail); err != nil {
		return apperrors.ErrExternalAPI(0, "smtp RCPT TO", err)
	}
	w, err := c.Data()
	if err != nil {
		return apperrors.ErrExternalAPI(0, "smtp DATA", err)
	}
	if _, err := w.Write(msg); err != nil {
		return apperrors.ErrTransport("smtp write", err)
	}
	if err := w.Close(); err != nil {
		return apperrors.ErrExternalAPI(0, "smtp message rejected", err)
	}
	return c.Quit()
}
