package scheduler_test

import (
	"context"
	"sync"
	"time"

	assetPostgres "github.com/frahmantamala/asset-attestation/internal/asset/postgres"
	"github.com/frahmantamala/asset-attestation/internal/attestation"
	attestationPostgres "github.com/frahmantamala/asset-attestation/internal/attestation/postgres"
	"github.com/frahmantamala/asset-attestation/internal/audit"
	assetDatamodel "github.com/frahmantamala/asset-attestation/internal/core/datamodel/asset"
	attestationDatamodel "github.com/frahmantamala/asset-attestation/internal/core/datamodel/attestation"
	userDatamodel "github.com/frahmantamala/asset-attestation/internal/core/datamodel/user"
	"github.com/frahmantamala/asset-attestation/internal/notification"
	"github.com/frahmantamala/asset-attestation/internal/scheduler"
	"github.com/frahmantamala/asset-attestation/internal/testdb"
	userPostgres "github.com/frahmantamala/asset-attestation/internal/user/postgres"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

var _ = Describe("Scheduler", func() {
	var (
		ctx    context.Context
		db     *gorm.DB
		sender *fakeSender
		sched  *scheduler.Scheduler
	)

	now := time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)
	daysAgo := func(n int) time.Time { return now.Add(-time.Duration(n) * 24 * time.Hour) }

	newScheduler := func() *scheduler.Scheduler {
		return scheduler.New(
			attestationPostgres.NewAttestationRepository(db),
			userPostgres.NewUserRepository(db),
			assetPostgres.NewAssetRepository(db),
			sender,
			audit.Discard{},
			discardLogger(),
			scheduler.WithClock(func() time.Time { return now }),
		)
	}

	createCampaign := func(start time.Time, end *time.Time) *attestationDatamodel.Campaign {
		c := &attestationDatamodel.Campaign{
			Name:                     "Q2 Review",
			StartDate:                start,
			EndDate:                  end,
			Status:                   attestation.CampaignStatusActive,
			TargetType:               attestation.TargetAll,
			ReminderDays:             7,
			EscalationDays:           10,
			UnregisteredReminderDays: 7,
		}
		Expect(db.Create(c).Error).To(Succeed())
		return c
	}

	createUser := func(email, managerEmail string) *userDatamodel.User {
		u := &userDatamodel.User{Email: email, FirstName: "Emp", LastName: "Loyee", Role: "employee", ManagerEmail: managerEmail}
		Expect(db.Create(u).Error).To(Succeed())
		return u
	}

	createRecord := func(campaignID, userID int64, status string) *attestationDatamodel.Record {
		r := &attestationDatamodel.Record{CampaignID: campaignID, UserID: userID, Status: status}
		Expect(db.Create(r).Error).To(Succeed())
		return r
	}

	createInvite := func(campaignID int64, email, token string) *attestationDatamodel.PendingInvite {
		inv := &attestationDatamodel.PendingInvite{CampaignID: campaignID, EmployeeEmail: email, InviteToken: token}
		Expect(db.Create(inv).Error).To(Succeed())
		return inv
	}

	createAsset := func(email, managerEmail string) {
		a := &assetDatamodel.Asset{EmployeeEmail: email, ManagerEmail: managerEmail, AssetType: "laptop", Status: "active"}
		Expect(db.Omit("Manager").Create(a).Error).To(Succeed())
	}

	reload := func(r *attestationDatamodel.Record) *attestationDatamodel.Record {
		var out attestationDatamodel.Record
		Expect(db.First(&out, r.ID).Error).To(Succeed())
		return &out
	}

	run := func() *scheduler.Report {
		report, err := sched.Run(ctx)
		Expect(err).NotTo(HaveOccurred())
		return report
	}

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		db, err = testdb.Open()
		Expect(err).NotTo(HaveOccurred())
		sender = newFakeSender()
		sched = newScheduler()
	})

	Describe("reminders", func() {
		It("sends one reminder once the threshold passes and never again", func() {
			c := createCampaign(daysAgo(8), nil)
			u := createUser("alice@x.com", "")
			r := createRecord(c.ID, u.ID, attestation.RecordStatusPending)

			Expect(run().RemindersSent).To(Equal(1))
			Expect(sender.ofKind(notification.KindReminder)).To(ConsistOf(HaveField("To", "alice@x.com")))
			Expect(reload(r).ReminderSentAt).NotTo(BeNil())

			Expect(run().RemindersSent).To(Equal(0))
			Expect(sender.ofKind(notification.KindReminder)).To(HaveLen(1))
		})

		It("waits for the threshold", func() {
			c := createCampaign(daysAgo(6), nil)
			u := createUser("alice@x.com", "")
			createRecord(c.ID, u.ID, attestation.RecordStatusInProgress)

			Expect(run().RemindersSent).To(Equal(0))
		})

		It("skips completed records", func() {
			c := createCampaign(daysAgo(8), nil)
			u := createUser("alice@x.com", "")
			createRecord(c.ID, u.ID, attestation.RecordStatusCompleted)

			Expect(run().RemindersSent).To(Equal(0))
			Expect(sender.sent).To(BeEmpty())
		})

		It("ignores campaigns that are not active", func() {
			c := createCampaign(daysAgo(8), nil)
			Expect(db.Model(c).Update("status", attestation.CampaignStatusCancelled).Error).To(Succeed())
			u := createUser("alice@x.com", "")
			createRecord(c.ID, u.ID, attestation.RecordStatusPending)

			Expect(run().CampaignsScanned).To(Equal(0))
		})

		It("leaves the marker unset after a failed send so the next pass retries", func() {
			c := createCampaign(daysAgo(8), nil)
			alice := createUser("alice@x.com", "")
			bob := createUser("bob@x.com", "")
			failed := createRecord(c.ID, alice.ID, attestation.RecordStatusPending)
			createRecord(c.ID, bob.ID, attestation.RecordStatusPending)
			sender.failFor["alice@x.com"] = true

			report := run()
			Expect(report.Failures).To(Equal(1))
			Expect(report.RemindersSent).To(Equal(1))
			Expect(reload(failed).ReminderSentAt).To(BeNil())

			delete(sender.failFor, "alice@x.com")
			Expect(run().RemindersSent).To(Equal(1))
			Expect(reload(failed).ReminderSentAt).NotTo(BeNil())
		})

		It("sends once when runs overlap", func() {
			c := createCampaign(daysAgo(8), nil)
			for _, email := range []string{"a@x.com", "b@x.com", "c@x.com"} {
				createRecord(c.ID, createUser(email, "").ID, attestation.RecordStatusPending)
			}

			var wg sync.WaitGroup
			for i := 0; i < 3; i++ {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					_, err := newScheduler().Run(ctx)
					Expect(err).NotTo(HaveOccurred())
				}()
			}
			wg.Wait()

			Expect(sender.ofKind(notification.KindReminder)).To(HaveLen(3))
		})
	})

	Describe("escalations", func() {
		It("escalates to the manager on the profile", func() {
			c := createCampaign(daysAgo(11), nil)
			u := createUser("alice@x.com", "boss@x.com")
			r := createRecord(c.ID, u.ID, attestation.RecordStatusPending)

			report := run()
			Expect(report.EscalationsSent).To(Equal(1))
			Expect(sender.ofKind(notification.KindEscalation)).To(ConsistOf(sentMessage{
				Kind: notification.KindEscalation, To: "boss@x.com", Employee: "alice@x.com",
			}))
			Expect(reload(r).EscalationSentAt).NotTo(BeNil())

			Expect(run().EscalationsSent).To(Equal(0))
		})

		It("falls back to the manager recorded on the employee's assets", func() {
			c := createCampaign(daysAgo(11), nil)
			u := createUser("alice@x.com", "")
			createAsset("alice@x.com", "lead@x.com")
			createRecord(c.ID, u.ID, attestation.RecordStatusPending)

			run()
			Expect(sender.ofKind(notification.KindEscalation)).To(ConsistOf(HaveField("To", "lead@x.com")))
		})

		It("skips silently without a manager and keeps the marker unset", func() {
			c := createCampaign(daysAgo(11), nil)
			u := createUser("alice@x.com", "")
			r := createRecord(c.ID, u.ID, attestation.RecordStatusPending)

			report := run()
			Expect(report.EscalationsSent).To(Equal(0))
			Expect(report.Skipped).To(Equal(1))
			Expect(report.Failures).To(Equal(0))
			Expect(report.RemindersSent).To(Equal(1))
			Expect(reload(r).EscalationSentAt).To(BeNil())
		})
	})

	Describe("unregistered invitees", func() {
		It("reminds with the asset count and invite token", func() {
			c := createCampaign(daysAgo(8), nil)
			createInvite(c.ID, "carol@x.com", "tok-carol")
			createAsset("carol@x.com", "")
			createAsset("Carol@X.com", "")

			report := run()
			Expect(report.UnregisteredRemindersSent).To(Equal(1))
			Expect(sender.ofKind(notification.KindUnregisteredReminder)).To(ConsistOf(sentMessage{
				Kind: notification.KindUnregisteredReminder, To: "carol@x.com", AssetCount: 2, Token: "tok-carol",
			}))

			Expect(run().UnregisteredRemindersSent).To(Equal(0))
		})

		It("escalates to the first manager found on the invitee's assets", func() {
			c := createCampaign(daysAgo(11), nil)
			createInvite(c.ID, "carol@x.com", "tok-carol")
			createAsset("carol@x.com", "")
			createAsset("carol@x.com", "boss@x.com")

			report := run()
			Expect(report.UnregisteredEscalationsSent).To(Equal(1))
			Expect(sender.ofKind(notification.KindUnregisteredEscalation)).To(ConsistOf(sentMessage{
				Kind: notification.KindUnregisteredEscalation, To: "boss@x.com", Employee: "carol@x.com", AssetCount: 2,
			}))
		})

		It("prefers the linked manager account over the manager email typed on the asset", func() {
			lead := createUser("lead@x.com", "")
			c := createCampaign(daysAgo(11), nil)
			createInvite(c.ID, "carol@x.com", "tok-carol")
			a := &assetDatamodel.Asset{
				EmployeeEmail: "carol@x.com",
				ManagerEmail:  "old-lead@x.com",
				ManagerID:     &lead.ID,
				AssetType:     "laptop",
				Status:        "active",
			}
			Expect(db.Omit("Manager").Create(a).Error).To(Succeed())

			report := run()
			Expect(report.UnregisteredEscalationsSent).To(Equal(1))
			Expect(sender.ofKind(notification.KindUnregisteredEscalation)).To(ConsistOf(sentMessage{
				Kind: notification.KindUnregisteredEscalation, To: "lead@x.com", Employee: "carol@x.com", AssetCount: 1,
			}))
		})

		It("skips invitees who already registered", func() {
			c := createCampaign(daysAgo(11), nil)
			inv := createInvite(c.ID, "carol@x.com", "tok-carol")
			Expect(db.Model(inv).Update("registered_at", now).Error).To(Succeed())

			run()
			Expect(sender.sent).To(BeEmpty())
		})
	})

	Describe("auto-close", func() {
		It("completes active campaigns past their end date without touching records", func() {
			end := daysAgo(1)
			c := createCampaign(daysAgo(20), &end)
			u := createUser("alice@x.com", "boss@x.com")
			r := createRecord(c.ID, u.ID, attestation.RecordStatusPending)

			report := run()
			Expect(report.CampaignsClosed).To(Equal(1))
			Expect(sender.sent).To(BeEmpty())

			var stored attestationDatamodel.Campaign
			Expect(db.First(&stored, c.ID).Error).To(Succeed())
			Expect(stored.Status).To(Equal(attestation.CampaignStatusCompleted))
			Expect(stored.ClosedAt).NotTo(BeNil())
			Expect(reload(r).Status).To(Equal(attestation.RecordStatusPending))
		})

		It("never closes a campaign without an end date", func() {
			createCampaign(daysAgo(400), nil)
			Expect(run().CampaignsClosed).To(Equal(0))
		})

		It("keeps campaigns whose end date is still ahead", func() {
			end := now.Add(time.Hour)
			createCampaign(daysAgo(3), &end)
			Expect(run().CampaignsClosed).To(Equal(0))
		})
	})
})
