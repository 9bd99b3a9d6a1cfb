package bootstrap

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	appconfig "github.com/wolfman30/clinic-reservation/internal/config"
	"github.com/wolfman30/clinic-reservation/internal/notify"
	"github.com/wolfman30/clinic-reservation/pkg/logging"
)

// BuildEmailSender selects the EMAIL_PROVIDER sender. awsCfg is only used
// for ses.
func BuildEmailSender(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) (notify.EmailSender, error) {
	senderCfg := notify.SenderConfig{
		Provider:  cfg.EmailProvider,
		SendGrid:  notify.SendGridConfig{APIKey: cfg.SendGridAPIKey},
		FromEmail: cfg.EmailFromAddress,
		FromName:  cfg.EmailFromName,
	}
	if cfg.EmailProvider == "ses" && awsCfg != nil {
		senderCfg.SES = sesv2.NewFromConfig(*awsCfg)
	}
	return notify.NewEmailSender(senderCfg, logger)
}

// BuildNotifier wires the email service over the stores' doctor lookup and
// processed-event tracker.
func BuildNotifier(cfg *appconfig.Config, stores *Stores, awsCfg *aws.Config, logger *logging.Logger) (*notify.Service, error) {
	sender, err := BuildEmailSender(cfg, awsCfg, logger)
	if err != nil {
		return nil, err
	}
	return notify.NewService(sender, stores.Doctors, stores.Processed, logger), nil
}
