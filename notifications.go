package accounts

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"strings"
	"sync"
	"time"
)

// Mailer delivers a single notification email. Implementations may
// block; callers go through a Dispatcher.
type Mailer interface {
	SendVerificationEmail(to, code string) error
	SendWelcomeEmail(to, name string) error
	SendPasswordResetEmail(to, link string) error
	SendPasswordResetConfirmation(to string) error
}

const (
	defaultQueueSize = 64
	defaultWorkers   = 2
)

type mailJob struct {
	kind string
	to   string
	send func() error
}

// Dispatcher hands emails to a bounded in-process queue worked by
// background goroutines. Enqueueing never blocks the calling
// transition; when the queue is full the job is dropped and logged.
// Delivery errors are logged, never surfaced to the transition.
type Dispatcher struct {
	mailer  Mailer
	queue   chan mailJob
	workers int
	logger  Logger
	wg      sync.WaitGroup
	once    sync.Once
}

var _ Notifier = (*Dispatcher)(nil)

type DispatcherOption func(*Dispatcher)

func WithDispatcherLogger(logger Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

func WithQueueSize(size int) DispatcherOption {
	return func(d *Dispatcher) {
		if size > 0 {
			d.queue = make(chan mailJob, size)
		}
	}
}

func WithWorkers(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// NewDispatcher creates a Dispatcher and starts its workers.
func NewDispatcher(mailer Mailer, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		mailer:  mailer,
		queue:   make(chan mailJob, defaultQueueSize),
		workers: defaultWorkers,
		logger:  defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work()
	}

	return d
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for job := range d.queue {
		if err := job.send(); err != nil {
			d.logger.Error("mail dispatch failed kind=%s to=%s error=%v", job.kind, job.to, err)
		}
	}
}

// Close stops accepting jobs and waits for queued emails to drain.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		close(d.queue)
	})
	d.wg.Wait()
}

func (d *Dispatcher) enqueue(job mailJob) {
	select {
	case d.queue <- job:
	default:
		d.logger.Error("mail queue full, dropping email kind=%s to=%s", job.kind, job.to)
	}
}

func (d *Dispatcher) DispatchVerificationEmail(to, code string) {
	d.enqueue(mailJob{
		kind: "verification",
		to:   to,
		send: func() error { return d.mailer.SendVerificationEmail(to, code) },
	})
}

func (d *Dispatcher) DispatchWelcomeEmail(to, name string) {
	d.enqueue(mailJob{
		kind: "welcome",
		to:   to,
		send: func() error { return d.mailer.SendWelcomeEmail(to, name) },
	})
}

func (d *Dispatcher) DispatchPasswordResetEmail(to, link string) {
	d.enqueue(mailJob{
		kind: "password_reset",
		to:   to,
		send: func() error { return d.mailer.SendPasswordResetEmail(to, link) },
	})
}

func (d *Dispatcher) DispatchPasswordResetConfirmation(to string) {
	d.enqueue(mailJob{
		kind: "password_reset_confirmation",
		to:   to,
		send: func() error { return d.mailer.SendPasswordResetConfirmation(to) },
	})
}

// LogMailer writes notifications to the logger instead of sending them.
// Useful in development and tests.
type LogMailer struct {
	Logger Logger
}

var _ Mailer = (*LogMailer)(nil)

func (m LogMailer) logger() Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return defLogger{}
}

func (m LogMailer) SendVerificationEmail(to, code string) error {
	m.logger().Info("verification email to=%s code=%s", to, code)
	return nil
}

func (m LogMailer) SendWelcomeEmail(to, name string) error {
	m.logger().Info("welcome email to=%s name=%s", to, name)
	return nil
}

func (m LogMailer) SendPasswordResetEmail(to, link string) error {
	m.logger().Info("password reset email to=%s link=%s", to, link)
	return nil
}

func (m LogMailer) SendPasswordResetConfirmation(to string) error {
	m.logger().Info("password reset confirmation email to=%s", to)
	return nil
}

var (
	verificationTmpl = template.Must(template.New("verification").Parse(
		`<p>Welcome! Confirm your email address by entering this code:</p><h2>{{.Code}}</h2><p>The code expires in 24 hours.</p>`))
	welcomeTmpl = template.Must(template.New("welcome").Parse(
		`<p>Hi {{.Name}},</p><p>your email address is verified and your account is ready to use.</p>`))
	resetTmpl = template.Must(template.New("reset").Parse(
		`<p>We received a request to reset your password.</p><p><a href="{{.Link}}">Reset your password</a></p><p>The link expires in one hour. If you did not request this, ignore this email.</p>`))
	resetDoneTmpl = template.Must(template.New("reset_done").Parse(
		`<p>Your password was changed successfully.</p><p>If you did not do this, contact support immediately.</p>`))
)

// SMTPMailer sends notification emails through a STARTTLS SMTP relay.
type SMTPMailer struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

var _ Mailer = (*SMTPMailer)(nil)

func (s *SMTPMailer) SendVerificationEmail(to, code string) error {
	body, err := renderMail(verificationTmpl, map[string]string{"Code": code})
	if err != nil {
		return err
	}
	return s.send(to, "Verify your email", body)
}

func (s *SMTPMailer) SendWelcomeEmail(to, name string) error {
	body, err := renderMail(welcomeTmpl, map[string]string{"Name": name})
	if err != nil {
		return err
	}
	return s.send(to, "Welcome aboard", body)
}

func (s *SMTPMailer) SendPasswordResetEmail(to, link string) error {
	body, err := renderMail(resetTmpl, map[string]string{"Link": link})
	if err != nil {
		return err
	}
	return s.send(to, "Reset your password", body)
}

func (s *SMTPMailer) SendPasswordResetConfirmation(to string) error {
	body, err := renderMail(resetDoneTmpl, nil)
	if err != nil {
		return err
	}
	return s.send(to, "Your password was changed", body)
}

func renderMail(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (s *SMTPMailer) send(to, subject, htmlBody string) error {
	fromHeader := s.From
	if s.FromName != "" {
		fromHeader = fmt.Sprintf("%s <%s>", s.FromName, s.From)
	}

	msg := strings.Join([]string{
		fmt.Sprintf("From: %s", fromHeader),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		`Content-Type: text/html; charset="UTF-8"`,
		"",
		htmlBody,
	}, "\r\n")

	return s.sendWithTimeout(to, []byte(msg))
}

func (s *SMTPMailer) sendWithTimeout(to string, msg []byte) error {
	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)

	conn, err := net.DialTimeout("tcp", addr, 8*time.Second)
	if err != nil {
		return err
	}
	// deadline covers the whole SMTP conversation
	_ = conn.SetDeadline(time.Now().Add(15 * time.Second))

	c, err := smtp.NewClient(conn, s.Host)
	if err != nil {
		return err
	}
	defer func() { _ = c.Quit() }()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: s.Host}); err != nil {
			return err
		}
	}

	if s.Username != "" {
		auth := smtp.PlainAuth("", s.Username, s.Password, s.Host)
		if err := c.Auth(auth); err != nil {
			return err
		}
	}

	if err := c.Mail(s.From); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}

	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
