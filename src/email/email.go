package email

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net"
	"net/smtp"
	"net/textproto"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/jpillora/backoff"
	"github.com/jroots/jroots/src/config"
	"github.com/jroots/jroots/src/logging"
	"github.com/jroots/jroots/src/oops"
	"github.com/jroots/jroots/src/utils"
)

const maxSendAttempts = 3
const retryDelay = 1 * time.Second

var EmailRegex = regexp.MustCompile(`^[^:\p{Cc} ]+@[^:\p{Cc} ]+\.[^:\p{Cc} ]+$`)

// Addresses ride inside colon-delimited decision tokens, so anything with a
// colon in it is unusable regardless of what the mail server would accept.
func IsEmail(address string) bool {
	return EmailRegex.Match([]byte(address))
}

func SendRegistrationEmail(ctx context.Context, toAddress string, username string, completionToken string) error {
	verificationUrl := fmt.Sprintf("%s/verify?username=%s&token=%s",
		config.Config.BaseUrl,
		url.QueryEscape(username),
		url.QueryEscape(completionToken),
	)
	contents := fmt.Sprintf(
		`<p>Hello %s,</p>
<p>Somebody (hopefully you) registered this address on <a href="%s">JRoots</a>.</p>
<p>To verify your email and activate your account, follow this link:</p>
<p><a href="%s">%s</a></p>
<p>If this wasn't you, you can safely ignore this email.</p>`,
		username,
		config.Config.BaseUrl,
		verificationUrl, verificationUrl,
	)

	err := sendMail(ctx, toAddress, username, "[JRoots] Verify your email", contents)
	if err != nil {
		return oops.New(err, "failed to send registration email")
	}
	return nil
}

func SendAccessGrantedEmail(ctx context.Context, toAddress string, username string, assetID int) error {
	imageUrl := fmt.Sprintf("%s/api/images/%d", config.Config.BaseUrl, assetID)
	contents := fmt.Sprintf(
		`<p>Hello %s,</p>
<p>Your request for full access to image #%d was approved. The unmodified
image is now available to your account:</p>
<p><a href="%s">%s</a></p>`,
		username,
		assetID,
		imageUrl, imageUrl,
	)

	err := sendMail(ctx, toAddress, username, "[JRoots] Access granted", contents)
	if err != nil {
		return oops.New(err, "failed to send access granted email")
	}
	return nil
}

/*
Delivers one mail, retrying a bounded number of times with a fixed delay.
Only connection-level trouble is retried; if the server answered and said no,
asking again will not change its mind.
*/
func sendMail(ctx context.Context, toAddress, toName, subject, contentHtml string) error {
	if config.Config.Email.ForceToAddress != "" {
		toAddress = config.Config.Email.ForceToAddress
	}
	contents := prepMailContents(
		makeHeaderAddress(toAddress, toName),
		makeHeaderAddress(config.Config.Email.FromAddress, config.Config.Email.FromName),
		subject,
		contentHtml,
	)

	b := &backoff.Backoff{
		Min:    retryDelay,
		Max:    retryDelay,
		Factor: 1,
	}

	var err error
	for attempt := 1; attempt <= maxSendAttempts; attempt++ {
		err = smtp.SendMail(
			fmt.Sprintf("%s:%d", config.Config.Email.ServerAddress, config.Config.Email.ServerPort),
			smtpAuth(),
			config.Config.Email.FromAddress,
			[]string{toAddress},
			contents,
		)
		if err == nil {
			return nil
		}
		if !IsConnectionError(err) {
			return err
		}

		logging.ExtractLogger(ctx).Warn().
			Err(err).
			Int("attempt", attempt).
			Msg("Transient failure sending mail")

		if attempt < maxSendAttempts {
			if sleepErr := utils.SleepContext(ctx, b.Duration()); sleepErr != nil {
				return sleepErr
			}
		}
	}
	return err
}

func smtpAuth() smtp.Auth {
	cfg := config.Config.Email
	if cfg.MailerUsername == "" {
		return nil
	}
	return smtp.PlainAuth("", cfg.MailerUsername, cfg.MailerPassword, cfg.ServerAddress)
}

// Connection-level errors are worth retrying; a textproto.Error means the
// server answered and rejected us, which a retry will not fix.
func IsConnectionError(err error) bool {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

func makeHeaderAddress(email, fullname string) string {
	if fullname != "" {
		encoded := mime.BEncoding.Encode("utf-8", fullname)
		if encoded == fullname {
			encoded = strings.ReplaceAll(encoded, `"`, `\"`)
			encoded = fmt.Sprintf("\"%s\"", encoded)
		}
		return fmt.Sprintf("%s <%s>", encoded, email)
	} else {
		return email
	}
}

func prepMailContents(toLine string, fromLine string, subject string, contentHtml string) []byte {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("To: %s\r\n", toLine))
	builder.WriteString(fmt.Sprintf("From: %s\r\n", fromLine))
	builder.WriteString(fmt.Sprintf("Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z)))
	builder.WriteString(fmt.Sprintf("Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject)))
	builder.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	builder.WriteString("Content-Transfer-Encoding: quoted-printable\r\n")
	builder.WriteString("\r\n")
	writer := quotedprintable.NewWriter(&builder)
	writer.Write([]byte(contentHtml))
	writer.Close()
	builder.WriteString("\r\n")

	return []byte(builder.String())
}
