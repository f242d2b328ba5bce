package mailer

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"go-gin-microblog/internal/core/config"
	"go-gin-microblog/internal/domain"
)

// Sender 渲染并投递一封事务性邮件
type Sender interface {
	Send(j Job, u *domain.User) error
}

type SMTPSender struct {
	dialer  *gomail.Dialer
	from    string
	baseURL string
}

func NewSMTPSender(cfg config.Mail, baseURL string) *SMTPSender {
	return &SMTPSender{
		dialer:  gomail.NewDialer(cfg.Host, cfg.Port, cfg.From, cfg.Password),
		from:    cfg.From,
		baseURL: baseURL,
	}
}

func (s *SMTPSender) Send(j Job, u *domain.User) error {
	m, err := s.compose(j, u)
	if err != nil || m == nil {
		return err
	}
	return s.dialer.DialAndSend(m)
}

// compose 渲染邮件；返回 (nil, nil) 表示该任务不需要发信
func (s *SMTPSender) compose(j Job, u *domain.User) (*gomail.Message, error) {
	var subject, body string
	switch j.Kind {
	case KindRegistrationConfirmation:
		if u.ConfirmationHash == nil {
			return nil, nil // 已确认，无事可做
		}
		subject = "Welcome to My Awesome Site"
		link := fmt.Sprintf("%s/confirm?id=%s&hash=%s", s.baseURL, u.ID, *u.ConfirmationHash)
		body = fmt.Sprintf("Hello %s,<br><br>Click <a href='%s'>here</a> to activate your account.", u.Name, link)
	case KindPasswordResetConfirmation:
		if u.PasswordResetHash == nil {
			return nil, nil
		}
		subject = "Password reset confirmation"
		link := fmt.Sprintf("%s/password_reset?id=%s&hash=%s", s.baseURL, u.ID, *u.PasswordResetHash)
		body = fmt.Sprintf("Hello %s,<br><br>Click <a href='%s'>here</a> to reset your password.", u.Name, link)
	default:
		return nil, fmt.Errorf("unknown mail kind %q", j.Kind)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", u.Email)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)
	return m, nil
}
