package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// HTTPRequestsTotal counts requests by method, route and status code.
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTPRequestDuration observes request latency per route.
	HTTPRequestDuration *prometheus.HistogramVec

	// ListsCreatedTotal counts successfully created lists.
	ListsCreatedTotal prometheus.Counter
	// ListsDeletedTotal counts lists deleted after the last member left.
	ListsDeletedTotal prometheus.Counter
	// InvitationsSentTotal counts invitations added to a list.
	InvitationsSentTotal prometheus.Counter
	// InvitationsAcceptedTotal counts accepted invitations.
	InvitationsAcceptedTotal prometheus.Counter
	// InvitationsDeclinedTotal counts declined invitations.
	InvitationsDeclinedTotal prometheus.Counter
	// InvitationsExpiredTotal counts invitations pruned by the janitor.
	InvitationsExpiredTotal prometheus.Counter
	// RateLimitRejectedTotal counts requests rejected by the credential throttle.
	RateLimitRejectedTotal prometheus.Counter

	// MailQueuedTotal counts invitation mails published to the mail stream.
	MailQueuedTotal prometheus.Counter
	// MailSentTotal counts invitation mails delivered by the worker.
	MailSentTotal prometheus.Counter
	// MailRetriedTotal counts mail deliveries that were requeued after a failure.
	MailRetriedTotal prometheus.Counter
	// MailDLQTotal counts mail messages moved to the dead letter stream.
	MailDLQTotal prometheus.Counter
	// MailAutoClaimTotal counts pending mail messages reclaimed from dead consumers.
	MailAutoClaimTotal prometheus.Counter

	initOnce sync.Once
)

// InitMetrics registers all collectors with the default registry.
// Safe to call more than once; only the first call registers.
func InitMetrics() {
	initOnce.Do(func() {
		HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "listial_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"})

		HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "listial_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"})

		ListsCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "listial_lists_created_total",
			Help: "Lists created.",
		})
		ListsDeletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "listial_lists_deleted_total",
			Help: "Lists deleted after the member set emptied.",
		})
		InvitationsSentTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "listial_invitations_sent_total",
			Help: "Invitations added.",
		})
		InvitationsAcceptedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "listial_invitations_accepted_total",
			Help: "Invitations accepted.",
		})
		InvitationsDeclinedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "listial_invitations_declined_total",
			Help: "Invitations declined.",
		})
		InvitationsExpiredTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "listial_invitations_expired_total",
			Help: "Unanswered invitations pruned after their retention window.",
		})
		RateLimitRejectedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "listial_ratelimit_rejected_total",
			Help: "Requests rejected by the credential endpoint throttle.",
		})

		MailQueuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "listial_mail_queued_total",
			Help: "Invitation mails published to the queue.",
		})
		MailSentTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "listial_mail_sent_total",
			Help: "Invitation mails delivered.",
		})
		MailRetriedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "listial_mail_retried_total",
			Help: "Invitation mail deliveries requeued after a failure.",
		})
		MailDLQTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "listial_mail_dlq_total",
			Help: "Invitation mails moved to the dead letter stream.",
		})
		MailAutoClaimTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "listial_mail_autoclaim_total",
			Help: "Pending mail messages reclaimed from dead consumers.",
		})

		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			ListsCreatedTotal,
			ListsDeletedTotal,
			InvitationsSentTotal,
			InvitationsAcceptedTotal,
			InvitationsDeclinedTotal,
			InvitationsExpiredTotal,
			RateLimitRejectedTotal,
			MailQueuedTotal,
			MailSentTotal,
			MailRetriedTotal,
			MailDLQTotal,
			MailAutoClaimTotal,
		)
	})
}
