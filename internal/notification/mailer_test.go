package notification_test

import (
	"context"
	"time"

	"github.com/frahmantamala/asset-attestation/internal/notification"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Mailer", func() {
	var (
		ctx       context.Context
		transport *recordingTransport
		mailer    *notification.Mailer
		campaign  notification.CampaignInfo
		alice     notification.Person
	)

	BeforeEach(func() {
		ctx = context.Background()
		transport = &recordingTransport{}
		var err error
		mailer, err = notification.NewMailer(transport, "assets@example.com", "https://assets.example.com/", discardLogger())
		Expect(err).NotTo(HaveOccurred())

		end := time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC)
		campaign = notification.CampaignInfo{ID: 1, Name: "Q2 Review", StartDate: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), EndDate: &end}
		alice = notification.Person{Email: "alice@example.com", FirstName: "Alice", LastName: "Ng"}
	})

	It("rejects an invalid from address", func() {
		_, err := notification.NewMailer(transport, "not-an-address", "", discardLogger())
		Expect(err).To(HaveOccurred())
	})

	It("sends a reminder with the close date and a link to the attestations page", func() {
		Expect(mailer.SendReminder(ctx, alice, campaign)).To(Succeed())

		emails := transport.sent()
		Expect(emails).To(HaveLen(1))
		Expect(emails[0].From).To(Equal("assets@example.com"))
		Expect(emails[0].To).To(Equal([]string{"alice@example.com"}))
		Expect(emails[0].Subject).To(ContainSubstring("Q2 Review"))
		Expect(emails[0].Text).To(ContainSubstring("Hi Alice Ng"))
		Expect(emails[0].Text).To(ContainSubstring("April 30, 2026"))
		Expect(emails[0].Text).To(ContainSubstring("https://assets.example.com/attestations"))
		Expect(emails[0].HTML).To(ContainSubstring("<strong>Q2 Review</strong>"))
	})

	It("addresses escalations to the manager and names the employee", func() {
		Expect(mailer.SendEscalation(ctx, "boss@example.com", alice, campaign)).To(Succeed())

		email := transport.sent()[0]
		Expect(email.To).To(Equal([]string{"boss@example.com"}))
		Expect(email.Subject).To(ContainSubstring("Alice Ng"))
		Expect(email.Text).To(ContainSubstring("alice@example.com"))
	})

	It("puts the invite token in the registration link", func() {
		Expect(mailer.SendUnregisteredReminder(ctx, alice, campaign, 3, "tok_123")).To(Succeed())

		email := transport.sent()[0]
		Expect(email.Text).To(ContainSubstring("3 asset(s)"))
		Expect(email.Text).To(ContainSubstring("https://assets.example.com/register?invite=tok_123"))
	})

	It("falls back to the email when the person has no name", func() {
		Expect(mailer.SendInvite(ctx, notification.Person{Email: "bob@example.com"}, campaign, "t")).To(Succeed())
		Expect(transport.sent()[0].Text).To(ContainSubstring("Hi bob@example.com"))
	})

	It("escapes user-controlled values in html", func() {
		campaign.Name = "<script>alert(1)</script>"
		Expect(mailer.SendLaunchNotice(ctx, alice, campaign)).To(Succeed())
		Expect(transport.sent()[0].HTML).NotTo(ContainSubstring("<script>"))
	})

	It("mentions created assets on the completion receipt", func() {
		Expect(mailer.SendCompletionReceipt(ctx, alice, campaign, 2)).To(Succeed())
		Expect(transport.sent()[0].Text).To(ContainSubstring("2 newly declared asset(s)"))
	})

	It("refuses invalid recipients without calling the transport", func() {
		err := mailer.SendUnregisteredEscalation(ctx, "nobody", alice, campaign, 1)
		Expect(err).To(MatchError(notification.ErrInvalidRecipient))
		Expect(transport.sent()).To(BeEmpty())
	})

	It("returns transport failures", func() {
		transport.fail = true
		Expect(mailer.SendReminder(ctx, alice, campaign)).To(HaveOccurred())
	})
})
