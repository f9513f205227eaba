package user

import (
	"github.com/mutabaa-app/mutabaa/core"
)

// NewServiceMock returns a Service whose password reset mail is sent
// synchronously so tests can assert on the outbox.
func NewServiceMock(repo Repository, mailSvc core.EmailService) *Service {
	return &Service{
		repo:     repo,
		mailSvc:  mailSvc,
		logger:   core.NopLogger{},
		syncMail: true,
	}
}
