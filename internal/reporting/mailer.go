package reporting

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/alocode/restopos/config"
	"github.com/alocode/restopos/internal/events"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/gomail.v2"
)

// Mailer sends the daily report to the configured recipients once a register
// session closes.
type Mailer struct {
	cfg      config.MailConfig
	reporter *Reporter
	send     func(*gomail.Message) error
}

func NewMailer(cfg config.MailConfig, reporter *Reporter) *Mailer {
	m := &Mailer{cfg: cfg, reporter: reporter}
	m.send = func(msg *gomail.Message) error {
		return gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Passwd).DialAndSend(msg)
	}
	return m
}

// Attach subscribes to register:closed when mail is enabled
func (m *Mailer) Attach(bus *events.Bus) error {
	if !m.cfg.Enabled || len(m.cfg.To) == 0 {
		return nil
	}
	return bus.SubscribeAsync(events.TopicRegisterClosed, m.onRegisterClosed)
}

func (m *Mailer) onRegisterClosed(e events.RegisterEvent) {
	if err := m.SendDaily(context.Background(), e.Session.BusinessDate); err != nil {
		zap.L().Error("send daily report error",
			zap.String("business_date", e.Session.BusinessDate),
			zap.Error(err),
			zap.String("namespace", "reporting"))
	}
}

// SendDaily mails the report of date with the workbook attached
func (m *Mailer) SendDaily(ctx context.Context, date string) error {
	report, err := m.reporter.Daily(ctx, date)
	if err != nil {
		return err
	}
	var workbook bytes.Buffer
	if err := WriteDailyExcel(&workbook, report); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", m.cfg.To...)
	msg.SetHeader("Subject", fmt.Sprintf("Daily report %s", report.Date))
	msg.SetBody("text/plain", Summarize(report, m.cfg.Locale))
	msg.Attach(fmt.Sprintf("report-%s.xlsx", report.Date), gomail.SetCopyFunc(func(w io.Writer) error {
		_, err := w.Write(workbook.Bytes())
		return err
	}))
	if err := m.send(msg); err != nil {
		return errors.Wrap(err, "send mail")
	}
	zap.L().Info("daily report sent",
		zap.String("business_date", report.Date),
		zap.Strings("to", m.cfg.To),
		zap.String("namespace", "reporting"))
	return nil
}

// Summarize plain text summary of the report with numbers formatted for locale
func Summarize(r *DailyReport, locale string) string {
	p := message.NewPrinter(language.Make(locale))
	var sb strings.Builder
	sb.WriteString(p.Sprintf("Business date: %s\n", r.Date))
	sb.WriteString(p.Sprintf("Sessions: %d\n", len(r.Sessions)))
	sb.WriteString(p.Sprintf("Opening total: %.2f\n", r.OpeningTotal.InexactFloat64()))
	sb.WriteString(p.Sprintf("Sales: %.2f\n", r.Sales.InexactFloat64()))
	sb.WriteString(p.Sprintf("Surcharges: %.2f\n", r.Surcharges.InexactFloat64()))
	sb.WriteString(p.Sprintf("Net: %.2f\n", r.Net.InexactFloat64()))
	sb.WriteString(p.Sprintf("Closing total: %.2f\n", r.ClosingTotal.InexactFloat64()))
	sb.WriteString(p.Sprintf("Tickets: %d, average %.2f, largest %.2f\n", r.Tickets.Count, r.Tickets.Mean, r.Tickets.Max))
	return sb.String()
}
