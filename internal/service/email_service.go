package service

import (
	"crypto/tls"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/astrocyte/PSOLOMON/internal/config"
)

// EmailService 邮件发送服务
type EmailService struct {
	cfg *config.EmailConfig
}

// NewEmailService 创建邮件服务
func NewEmailService(cfg *config.EmailConfig) *EmailService {
	return &EmailService{cfg: cfg}
}

// SetConfig 更新运行时邮件配置
func (s *EmailService) SetConfig(cfg *config.EmailConfig) {
	if cfg == nil {
		return
	}
	s.cfg = cfg
}

// SendCustomEmail 发送测试邮件或自定义邮件
func (s *EmailService) SendCustomEmail(toEmail, subject, body string) error {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = "SMTP configuration test"
	}
	body = strings.TrimSpace(body)
	if body == "" {
		body = "This is a test email from the affiliate program service. Your SMTP settings are working."
	}
	return s.sendTextEmail(toEmail, subject, body)
}

// readyConfig 校验当前配置可用并返回
func (s *EmailService) readyConfig() (*config.EmailConfig, error) {
	if s.cfg == nil || !s.cfg.Enabled {
		return nil, ErrEmailServiceDisabled
	}
	if s.cfg.Host == "" || s.cfg.Port == 0 || s.cfg.From == "" {
		return nil, ErrEmailServiceNotConfigured
	}
	return s.cfg, nil
}

func (s *EmailService) sendTextEmail(toEmail, subject, body string) error {
	cfg, err := s.readyConfig()
	if err != nil {
		return err
	}
	if _, err := mail.ParseAddress(toEmail); err != nil {
		return ErrInvalidEmail
	}

	msg := composeMessage(senderAddress(cfg.From, cfg.FromName), toEmail, subject, body)
	if err := deliver(cfg, toEmail, msg); err != nil {
		if isRecipientRejected(err) {
			return ErrEmailRecipientRejected
		}
		return err
	}
	return nil
}

// senderAddress 组装 From 头，显示名做 MIME 编码
func senderAddress(from, name string) string {
	if strings.TrimSpace(name) == "" {
		return from
	}
	encoded := mime.QEncoding.Encode("UTF-8", name)
	return (&mail.Address{Name: encoded, Address: from}).String()
}

func composeMessage(from, to, subject, body string) []byte {
	lines := []string{
		"From: " + from,
		"To: " + to,
		"Subject: " + mime.QEncoding.Encode("UTF-8", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
		"",
		body,
	}
	return []byte(strings.Join(lines, "\r\n"))
}

// dialSMTP 建立 SMTP 连接，SSL 模式直接走 TLS 握手
func dialSMTP(cfg *config.EmailConfig) (*smtp.Client, error) {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	if cfg.UseSSL {
		conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: cfg.Host})
		if err != nil {
			return nil, err
		}
		client, err := smtp.NewClient(conn, cfg.Host)
		if err != nil {
			conn.Close()
			return nil, err
		}
		return client, nil
	}
	return smtp.Dial(addr)
}

// deliver 单收件人投递
// 明文连接按配置升级 STARTTLS，服务端不支持 AUTH 时跳过认证
func deliver(cfg *config.EmailConfig, toEmail string, msg []byte) error {
	client, err := dialSMTP(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	if cfg.UseTLS && !cfg.UseSSL {
		if err := client.StartTLS(&tls.Config{ServerName: cfg.Host}); err != nil {
			return err
		}
	}
	if cfg.Username != "" || cfg.Password != "" {
		if ok, _ := client.Extension("AUTH"); ok {
			auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
			if err := client.Auth(auth); err != nil {
				return err
			}
		}
	}

	if err := client.Mail(cfg.From); err != nil {
		return err
	}
	if err := client.Rcpt(toEmail); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

// 服务端明确表示收件人不存在的常见应答片段
var recipientRejectedPhrases = []string{
	"no such recipient",
	"no such user",
	"recipient not found",
	"recipient address rejected",
	"invalid recipient",
	"user unknown",
	"unknown user",
	"unknown mailbox",
	"mailbox unavailable",
}

func isRecipientRejected(err error) bool {
	if err == nil {
		return false
	}
	message := strings.ToLower(err.Error())
	if containsAny(message, recipientRejectedPhrases) {
		return true
	}
	// 550 应答里提到收件对象时同样按收件人拒绝处理
	if strings.Contains(message, "550") {
		return containsAny(message, []string{"recipient", "user", "mailbox", "address", "rcpt"})
	}
	return false
}

func containsAny(message string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(message, keyword) {
			return true
		}
	}
	return false
}
