package attestation_test

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/asset-attestation/internal"
	"github.com/frahmantamala/asset-attestation/internal/asset"
	assetPostgres "github.com/frahmantamala/asset-attestation/internal/asset/postgres"
	"github.com/frahmantamala/asset-attestation/internal/attestation"
	attestationPostgres "github.com/frahmantamala/asset-attestation/internal/attestation/postgres"
	"github.com/frahmantamala/asset-attestation/internal/audit"
	assetDatamodel "github.com/frahmantamala/asset-attestation/internal/core/datamodel/asset"
	attestationDatamodel "github.com/frahmantamala/asset-attestation/internal/core/datamodel/attestation"
	companyDatamodel "github.com/frahmantamala/asset-attestation/internal/core/datamodel/company"
	userDatamodel "github.com/frahmantamala/asset-attestation/internal/core/datamodel/user"
	"github.com/frahmantamala/asset-attestation/internal/core/events"
	coreUser "github.com/frahmantamala/asset-attestation/internal/core/user"
	"github.com/frahmantamala/asset-attestation/internal/testdb"
	"github.com/frahmantamala/asset-attestation/internal/user"
	userPostgres "github.com/frahmantamala/asset-attestation/internal/user/postgres"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

type plainHasher struct{}

func (plainHasher) HashPassword(password string) (string, error) {
	return "hashed:" + password, nil
}

var _ = Describe("Service", func() {
	var (
		ctx          context.Context
		db           *gorm.DB
		publisher    *recordingPublisher
		service      *attestation.Service
		registration *user.Service
	)

	start := time.Now().Add(-24 * time.Hour)

	createUser := func(email, managerEmail string) *userDatamodel.User {
		u := &userDatamodel.User{
			Email:        email,
			FirstName:    "First",
			LastName:     "Last",
			Role:         string(coreUser.RoleEmployee),
			ManagerEmail: managerEmail,
		}
		Expect(db.Create(u).Error).To(Succeed())
		return u
	}

	createCompany := func(name string) int64 {
		c := &companyDatamodel.Company{Name: name}
		Expect(db.Create(c).Error).To(Succeed())
		return c.ID
	}

	createAsset := func(email string, companyID *int64, ownerID *int64) *assetDatamodel.Asset {
		a := &assetDatamodel.Asset{
			EmployeeFirstName: "Emp",
			EmployeeLastName:  "Loyee",
			EmployeeEmail:     email,
			OwnerID:           ownerID,
			CompanyID:         companyID,
			AssetType:         "laptop",
			Status:            asset.StatusActive,
		}
		Expect(db.Omit("Manager").Create(a).Error).To(Succeed())
		return a
	}

	allScope := func(name string) attestation.CampaignDTO {
		return attestation.CampaignDTO{Name: name, StartDate: start, TargetType: attestation.TargetAll}
	}

	companyScope := func(name string, ids ...int64) attestation.CampaignDTO {
		return attestation.CampaignDTO{Name: name, StartDate: start, TargetType: attestation.TargetCompanies, TargetCompanyIDs: ids}
	}

	newCampaign := func(dto attestation.CampaignDTO) *attestation.Campaign {
		c, err := service.CreateCampaign(ctx, 0, dto)
		Expect(err).NotTo(HaveOccurred())
		return c
	}

	launch := func(dto attestation.CampaignDTO) *attestation.Campaign {
		c := newCampaign(dto)
		_, err := service.LaunchCampaign(ctx, c.ID)
		Expect(err).NotTo(HaveOccurred())
		return c
	}

	recordsFor := func(campaignID int64) []attestationDatamodel.Record {
		var records []attestationDatamodel.Record
		Expect(db.Where("campaign_id = ?", campaignID).Order("id").Find(&records).Error).To(Succeed())
		return records
	}

	invitesFor := func(campaignID int64) []attestationDatamodel.PendingInvite {
		var invites []attestationDatamodel.PendingInvite
		Expect(db.Where("campaign_id = ?", campaignID).Order("id").Find(&invites).Error).To(Succeed())
		return invites
	}

	recordOf := func(campaignID, userID int64) attestationDatamodel.Record {
		var record attestationDatamodel.Record
		Expect(db.Where("campaign_id = ? AND user_id = ?", campaignID, userID).First(&record).Error).To(Succeed())
		return record
	}

	viewerOf := func(u *userDatamodel.User) asset.Viewer {
		return asset.Viewer{ID: u.ID, Email: u.Email, Role: coreUser.MustRole(u.Role)}
	}

	signUp := func(email string) *user.RegisterResponse {
		res, err := registration.Register(ctx, user.RegisterDTO{
			Email:     email,
			Password:  "password123",
			FirstName: "New",
			LastName:  "Person",
		})
		Expect(err).NotTo(HaveOccurred())
		return res
	}

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		db, err = testdb.Open()
		Expect(err).NotTo(HaveOccurred())

		users := userPostgres.NewUserRepository(db)
		assets := assetPostgres.NewAssetRepository(db)
		publisher = &recordingPublisher{}
		service = attestation.NewService(
			attestationPostgres.NewAttestationRepository(db),
			users,
			assets,
			publisher,
			audit.Discard{},
			internal.AttestationConfig{DefaultReminderDays: 7, DefaultEscalationDays: 10, DefaultUnregisteredReminderDays: 5},
			discardLogger(),
		)

		ownership := asset.NewOwnership(assets, users, audit.Discard{}, discardLogger())
		registration = user.NewService(users, ownership, service, plainHasher{}, audit.Discard{}, discardLogger())

		createUser("admin@x.com", "")
	})

	Describe("campaign lifecycle", func() {
		It("applies configured thresholds unless overridden", func() {
			c := newCampaign(allScope("Defaults"))
			Expect(c.Status).To(Equal(attestation.CampaignStatusDraft))
			Expect(c.ReminderDays).To(Equal(7))
			Expect(c.EscalationDays).To(Equal(10))
			Expect(c.UnregisteredReminderDays).To(Equal(5))

			days := 3
			dto := allScope("Override")
			dto.ReminderDays = &days
			Expect(newCampaign(dto).ReminderDays).To(Equal(3))
		})

		It("stores company targets without duplicates", func() {
			c := newCampaign(companyScope("Dupes", 4, 4, 9))
			fetched, err := service.GetCampaign(ctx, c.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(fetched.TargetCompanyIDs).To(Equal([]int64{4, 9}))
		})

		It("returns not found for an unknown campaign", func() {
			_, err := service.GetCampaign(ctx, 404)
			Expect(err).To(MatchError(attestation.ErrCampaignNotFound))
		})

		It("deletes drafts only", func() {
			draft := newCampaign(allScope("Draft"))
			Expect(service.DeleteCampaign(ctx, draft.ID)).To(Succeed())
			_, err := service.GetCampaign(ctx, draft.ID)
			Expect(err).To(MatchError(attestation.ErrCampaignNotFound))

			active := launch(allScope("Active"))
			Expect(service.DeleteCampaign(ctx, active.ID)).To(MatchError(attestation.ErrInvalidCampaignState))
		})

		It("cancels and refuses to relaunch a cancelled campaign", func() {
			c := launch(allScope("Cancel me"))

			cancelled, err := service.CancelCampaign(ctx, c.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(cancelled.Status).To(Equal(attestation.CampaignStatusCancelled))
			Expect(cancelled.ClosedAt).NotTo(BeNil())

			_, err = service.LaunchCampaign(ctx, c.ID)
			Expect(err).To(MatchError(attestation.ErrInvalidCampaignState))
			_, err = service.CancelCampaign(ctx, c.ID)
			Expect(err).To(MatchError(attestation.ErrInvalidCampaignState))
		})

		It("completes active campaigns only and leaves open records open", func() {
			createUser("emp@x.com", "")
			draft := newCampaign(allScope("Draft"))
			_, err := service.CompleteCampaign(ctx, draft.ID)
			Expect(err).To(MatchError(attestation.ErrInvalidCampaignState))

			active := launch(allScope("Active"))
			closed, err := service.CompleteCampaign(ctx, active.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(closed.Status).To(Equal(attestation.CampaignStatusCompleted))
			for _, r := range recordsFor(active.ID) {
				Expect(r.Status).To(Equal(attestation.RecordStatusPending))
			}
		})

		It("keeps the scope of an active campaign on update", func() {
			c := launch(allScope("Before"))
			end := time.Now().Add(30 * 24 * time.Hour)

			dto := companyScope("After", 1)
			dto.StartDate = time.Now().Add(-72 * time.Hour)
			dto.EndDate = &end
			updated, err := service.UpdateCampaign(ctx, c.ID, dto)
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Name).To(Equal("After"))
			Expect(updated.EndDate).NotTo(BeNil())
			Expect(updated.TargetType).To(Equal(attestation.TargetAll))
			Expect(updated.StartDate).To(BeTemporally("~", c.StartDate, time.Second))
		})

		It("refuses to edit a closed campaign", func() {
			c := launch(allScope("Closed"))
			_, err := service.CompleteCampaign(ctx, c.ID)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.UpdateCampaign(ctx, c.ID, allScope("Again"))
			Expect(err).To(MatchError(attestation.ErrInvalidCampaignState))
		})
	})

	Describe("LaunchCampaign", func() {
		It("covers every registered user and invites unregistered holders once", func() {
			createUser("a@x.com", "")
			createUser("b@x.com", "")
			createAsset("ghost@x.com", nil, nil)
			createAsset("Ghost@X.com", nil, nil)
			createAsset("A@x.com", nil, nil)

			c := newCampaign(allScope("Everyone"))
			res, err := service.LaunchCampaign(ctx, c.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.RecordsCreated).To(Equal(3))
			Expect(res.InvitesCreated).To(Equal(1))
			Expect(res.Relaunched).To(BeFalse())

			invites := invitesFor(c.ID)
			Expect(invites).To(HaveLen(1))
			Expect(invites[0].EmployeeEmail).To(Equal("ghost@x.com"))
			Expect(invites[0].InviteToken).NotTo(BeEmpty())

			fetched, err := service.GetCampaign(ctx, c.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(fetched.Status).To(Equal(attestation.CampaignStatusActive))
			Expect(fetched.LaunchedAt).NotTo(BeNil())
		})

		It("scopes to asset holders in the target companies without duplicates", func() {
			acme := createCompany("Acme")
			globex := createCompany("Globex")
			other := createCompany("Other")

			holder := createUser("holder@x.com", "")
			createAsset("holder@x.com", &acme, &holder.ID)
			createAsset("HOLDER@x.com", &globex, nil)
			outsider := createUser("outsider@x.com", "")
			createAsset("outsider@x.com", &other, &outsider.ID)
			createAsset("ghost@x.com", &acme, nil)
			createAsset("ghost@x.com", &globex, nil)

			c := newCampaign(companyScope("Companies", acme, globex))
			res, err := service.LaunchCampaign(ctx, c.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.RecordsCreated).To(Equal(1))
			Expect(res.InvitesCreated).To(Equal(1))

			records := recordsFor(c.ID)
			Expect(records).To(HaveLen(1))
			Expect(records[0].UserID).To(Equal(holder.ID))
		})

		It("never creates a second record for the same user on relaunch", func() {
			acme := createCompany("Acme")
			first := createUser("first@x.com", "")
			createAsset("first@x.com", &acme, &first.ID)

			c := launch(companyScope("Twice", acme))
			Expect(recordsFor(c.ID)).To(HaveLen(1))

			second := createUser("second@x.com", "")
			createAsset("second@x.com", &acme, &second.ID)

			res, err := service.LaunchCampaign(ctx, c.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Relaunched).To(BeTrue())
			Expect(res.RecordsCreated).To(Equal(1))

			res, err = service.LaunchCampaign(ctx, c.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.RecordsCreated).To(BeZero())
			Expect(res.InvitesCreated).To(BeZero())
			Expect(recordsFor(c.ID)).To(HaveLen(2))
		})

		It("publishes only the people added by each launch", func() {
			createUser("emp@x.com", "")
			createAsset("ghost@x.com", nil, nil)
			c := launch(allScope("Notify"))

			launched := publisher.ofType(events.EventTypeCampaignLaunched)
			Expect(launched).To(HaveLen(1))
			event := launched[0].(*events.CampaignLaunchedEvent)
			Expect(event.CampaignID).To(Equal(c.ID))
			Expect(event.Participants).To(HaveLen(2))
			Expect(event.Invitees).To(HaveLen(1))
			Expect(event.Invitees[0].InviteToken).NotTo(BeEmpty())

			_, err := service.LaunchCampaign(ctx, c.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(publisher.ofType(events.EventTypeCampaignLaunched)).To(HaveLen(1))
		})

		It("leaves the campaign in draft with nothing created when a write fails", func() {
			createUser("emp@x.com", "")
			createAsset("ghost@x.com", nil, nil)
			c := newCampaign(allScope("Broken"))

			Expect(db.Callback().Create().Before("gorm:create").Register("test:fail_invites", func(tx *gorm.DB) {
				if tx.Statement.Table == "attestation_pending_invites" {
					_ = tx.AddError(errors.New("disk full"))
				}
			})).To(Succeed())

			_, err := service.LaunchCampaign(ctx, c.ID)
			Expect(err).To(MatchError(ContainSubstring("disk full")))

			fetched, err := service.GetCampaign(ctx, c.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(fetched.Status).To(Equal(attestation.CampaignStatusDraft))
			Expect(fetched.LaunchedAt).To(BeNil())
			Expect(recordsFor(c.ID)).To(BeEmpty())
			Expect(invitesFor(c.ID)).To(BeEmpty())
			Expect(publisher.ofType(events.EventTypeCampaignLaunched)).To(BeEmpty())

			Expect(db.Callback().Create().Remove("test:fail_invites")).To(Succeed())
			res, err := service.LaunchCampaign(ctx, c.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Relaunched).To(BeFalse())
			Expect(res.RecordsCreated).To(Equal(2))
			Expect(res.InvitesCreated).To(Equal(1))
		})
	})

	Describe("pending invite conversion", func() {
		It("turns an unregistered owner's invite into a record on registration", func() {
			acme := createCompany("Acme")
			createAsset("e@x.com", &acme, nil)

			c := newCampaign(companyScope("Unregistered", acme))
			res, err := service.LaunchCampaign(ctx, c.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.InvitesCreated).To(Equal(1))
			Expect(res.RecordsCreated).To(BeZero())

			reg := signUp("e@x.com")
			Expect(reg.RedirectToAttestations).To(BeTrue())

			invites := invitesFor(c.ID)
			Expect(invites).To(HaveLen(1))
			Expect(invites[0].RegisteredAt).NotTo(BeNil())

			records := recordsFor(c.ID)
			Expect(records).To(HaveLen(1))
			Expect(records[0].UserID).To(Equal(reg.User.ID))
			Expect(records[0].Status).To(Equal(attestation.RecordStatusPending))
			Expect(invites[0].ConvertedRecordID).To(HaveValue(Equal(records[0].ID)))
		})

		It("leaves invites of a draft campaign unconverted", func() {
			c := newCampaign(allScope("Draft"))
			Expect(db.Create(&attestationDatamodel.PendingInvite{
				CampaignID:    c.ID,
				EmployeeEmail: "e@x.com",
				InviteToken:   "draft-token",
			}).Error).To(Succeed())

			reg := signUp("e@x.com")
			Expect(reg.RedirectToAttestations).To(BeFalse())

			invites := invitesFor(c.ID)
			Expect(invites[0].RegisteredAt).To(BeNil())
			Expect(recordsFor(c.ID)).To(BeEmpty())
		})

		It("leaves invites of a cancelled campaign unconverted", func() {
			createAsset("e@x.com", nil, nil)
			c := launch(allScope("Cancelled"))
			_, err := service.CancelCampaign(ctx, c.ID)
			Expect(err).NotTo(HaveOccurred())

			reg := signUp("e@x.com")
			Expect(reg.RedirectToAttestations).To(BeFalse())
			Expect(invitesFor(c.ID)[0].RegisteredAt).To(BeNil())
		})

		It("converts each invite once", func() {
			createAsset("e@x.com", nil, nil)
			launch(allScope("Once"))

			reg := signUp("e@x.com")
			Expect(reg.RedirectToAttestations).To(BeTrue())

			u := &userDatamodel.User{ID: reg.User.ID, Email: reg.User.Email}
			converted, err := service.ConvertPendingInvites(ctx, u)
			Expect(err).NotTo(HaveOccurred())
			Expect(converted).To(BeZero())
		})

		It("keeps converting the remaining invites when one fails", func() {
			createAsset("e@x.com", nil, nil)
			first := launch(allScope("First"))
			second := launch(allScope("Second"))

			Expect(db.Callback().Create().Before("gorm:create").Register("test:fail_first_record", func(tx *gorm.DB) {
				if record, ok := tx.Statement.Dest.(*attestationDatamodel.Record); ok && record.CampaignID == first.ID {
					_ = tx.AddError(errors.New("disk full"))
				}
			})).To(Succeed())

			reg := signUp("e@x.com")
			Expect(reg.RedirectToAttestations).To(BeTrue())

			Expect(recordOf(second.ID, reg.User.ID).Status).To(Equal(attestation.RecordStatusPending))
			Expect(invitesFor(second.ID)[0].RegisteredAt).NotTo(BeNil())
			Expect(invitesFor(first.ID)[0].RegisteredAt).To(BeNil())

			Expect(db.Callback().Create().Remove("test:fail_first_record")).To(Succeed())
			u := &userDatamodel.User{ID: reg.User.ID, Email: reg.User.Email}
			converted, err := service.ConvertPendingInvites(ctx, u)
			Expect(err).NotTo(HaveOccurred())
			Expect(converted).To(Equal(1))
			Expect(recordOf(first.ID, reg.User.ID).Status).To(Equal(attestation.RecordStatusPending))
		})

		It("resolves an invite by token", func() {
			createAsset("e@x.com", nil, nil)
			c := launch(allScope("Token"))
			token := invitesFor(c.ID)[0].InviteToken

			detail, err := service.InviteByToken(ctx, token)
			Expect(err).NotTo(HaveOccurred())
			Expect(detail.Invite.EmployeeEmail).To(Equal("e@x.com"))
			Expect(detail.Campaign.ID).To(Equal(c.ID))

			_, err = service.InviteByToken(ctx, "nope")
			Expect(err).To(MatchError(attestation.ErrInviteNotFound))
		})
	})

	Describe("employee self-service", func() {
		var (
			emp      *userDatamodel.User
			boss     *userDatamodel.User
			acme     int64
			owned    *assetDatamodel.Asset
			campaign *attestation.Campaign
			record   attestationDatamodel.Record
		)

		serial := func(s string) *string { return &s }

		BeforeEach(func() {
			boss = createUser("boss@x.com", "")
			emp = createUser("emp@x.com", "boss@x.com")
			acme = createCompany("Acme")
			owned = createAsset("emp@x.com", &acme, &emp.ID)
			campaign = launch(companyScope("Q1", acme))
			record = recordOf(campaign.ID, emp.ID)
		})

		It("lists only records of active campaigns", func() {
			mine, err := service.MyAttestations(ctx, emp.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(mine).To(HaveLen(1))
			Expect(mine[0].Campaign.Name).To(Equal("Q1"))

			_, err = service.CompleteCampaign(ctx, campaign.ID)
			Expect(err).NotTo(HaveOccurred())
			mine, err = service.MyAttestations(ctx, emp.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(mine).To(BeEmpty())
		})

		It("shows the employee's assets with the record", func() {
			detail, err := service.GetMyRecord(ctx, record.ID, viewerOf(emp))
			Expect(err).NotTo(HaveOccurred())
			Expect(detail.Assets).To(HaveLen(1))
			Expect(detail.Assets[0].ID).To(Equal(owned.ID))
			Expect(detail.NewAssets).To(BeEmpty())
		})

		It("starts a pending record", func() {
			started, err := service.StartRecord(ctx, record.ID, emp.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(started.Status).To(Equal(attestation.RecordStatusInProgress))
			Expect(started.StartedAt).NotTo(BeNil())

			again, err := service.StartRecord(ctx, record.ID, emp.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(again.StartedAt).To(HaveValue(BeTemporally("==", *started.StartedAt)))
		})

		It("refuses another user's record", func() {
			other := createUser("other@x.com", "")
			_, err := service.StartRecord(ctx, record.ID, other.ID)
			Expect(err).To(MatchError(internal.ErrUnauthorizedAccess))
			_, err = service.CompleteRecord(ctx, record.ID, viewerOf(other))
			Expect(err).To(MatchError(internal.ErrUnauthorizedAccess))
		})

		It("updates the status of an owned asset and starts the record", func() {
			updated, err := service.UpdateAssetStatus(ctx, record.ID, viewerOf(emp), owned.ID, attestation.AssetStatusDTO{Status: asset.StatusLost})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Status).To(Equal(asset.StatusLost))
			Expect(recordOf(campaign.ID, emp.ID).Status).To(Equal(attestation.RecordStatusInProgress))
		})

		It("refuses status changes on assets the employee does not hold", func() {
			foreign := createAsset("someone@x.com", &acme, nil)
			_, err := service.UpdateAssetStatus(ctx, record.ID, viewerOf(emp), foreign.ID, attestation.AssetStatusDTO{Status: asset.StatusLost})
			Expect(err).To(MatchError(internal.ErrUnauthorizedAccess))
		})

		It("rejects a new asset whose serial is already registered", func() {
			Expect(db.Model(owned).Update("serial_number", "SN-TAKEN").Error).To(Succeed())
			_, err := service.AddNewAsset(ctx, record.ID, emp.ID, attestation.NewAssetDTO{AssetType: "laptop", SerialNumber: serial("SN-TAKEN")})
			Expect(err).To(MatchError(asset.ErrDuplicateSerial))
		})

		It("rejects a serial or tag already staged on an open record", func() {
			peer := createUser("peer@x.com", "")
			createAsset("peer@x.com", &acme, &peer.ID)
			_, err := service.LaunchCampaign(ctx, campaign.ID)
			Expect(err).NotTo(HaveOccurred())
			peerRecord := recordOf(campaign.ID, peer.ID)

			_, err = service.AddNewAsset(ctx, record.ID, emp.ID, attestation.NewAssetDTO{
				AssetType:    "dock",
				SerialNumber: serial("DUP-1"),
				AssetTag:     serial("TAG-1"),
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.AddNewAsset(ctx, record.ID, emp.ID, attestation.NewAssetDTO{AssetType: "dock", SerialNumber: serial("DUP-1")})
			Expect(err).To(MatchError(asset.ErrDuplicateSerial))
			_, err = service.AddNewAsset(ctx, peerRecord.ID, peer.ID, attestation.NewAssetDTO{AssetType: "dock", AssetTag: serial("TAG-1")})
			Expect(err).To(MatchError(asset.ErrDuplicateAssetTag))

			result, err := service.CompleteRecord(ctx, record.ID, viewerOf(emp))
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Completed).To(BeTrue())
			Expect(result.AssetsCreated).To(Equal(1))
		})

		It("transfers staged assets exactly once on completion", func() {
			_, err := service.StartRecord(ctx, record.ID, emp.ID)
			Expect(err).NotTo(HaveOccurred())

			staged, err := service.AddNewAsset(ctx, record.ID, emp.ID, attestation.NewAssetDTO{
				AssetType:    "monitor",
				Make:         "Dell",
				Model:        "U2720Q",
				SerialNumber: serial("MON-1"),
				CompanyID:    &acme,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(staged.RecordID).To(Equal(record.ID))

			result, err := service.CompleteRecord(ctx, record.ID, viewerOf(emp))
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Completed).To(BeTrue())
			Expect(result.AssetsCreated).To(Equal(1))
			Expect(result.Record.Status).To(Equal(attestation.RecordStatusCompleted))
			Expect(result.Record.CompletedAt).NotTo(BeNil())

			var created assetDatamodel.Asset
			Expect(db.Where("serial_number = ?", "MON-1").First(&created).Error).To(Succeed())
			Expect(created.OwnerID).To(HaveValue(Equal(emp.ID)))
			Expect(created.EmployeeEmail).To(Equal("emp@x.com"))
			Expect(created.AssetType).To(Equal("monitor"))
			Expect(created.Make).To(Equal("Dell"))
			Expect(created.CompanyID).To(HaveValue(Equal(acme)))
			Expect(created.Status).To(Equal(asset.StatusActive))
			Expect(created.ManagerEmail).To(Equal("boss@x.com"))
			Expect(created.ManagerID).To(HaveValue(Equal(boss.ID)))

			again, err := service.CompleteRecord(ctx, record.ID, viewerOf(emp))
			Expect(err).NotTo(HaveOccurred())
			Expect(again.Completed).To(BeFalse())
			Expect(again.AssetsCreated).To(BeZero())

			var count int64
			Expect(db.Model(&assetDatamodel.Asset{}).Where("serial_number = ?", "MON-1").Count(&count).Error).To(Succeed())
			Expect(count).To(Equal(int64(1)))

			var stagedCount int64
			Expect(db.Model(&attestationDatamodel.NewAsset{}).Count(&stagedCount).Error).To(Succeed())
			Expect(stagedCount).To(Equal(int64(1)))

			completed := publisher.ofType(events.EventTypeAttestationCompleted)
			Expect(completed).To(HaveLen(1))
			Expect(completed[0].(*events.AttestationCompletedEvent).AssetsCreated).To(Equal(1))
		})

		It("completes straight from pending", func() {
			result, err := service.CompleteRecord(ctx, record.ID, viewerOf(emp))
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Completed).To(BeTrue())
			Expect(result.Record.StartedAt).NotTo(BeNil())
		})

		It("refuses edits after completion", func() {
			_, err := service.CompleteRecord(ctx, record.ID, viewerOf(emp))
			Expect(err).NotTo(HaveOccurred())

			_, err = service.AddNewAsset(ctx, record.ID, emp.ID, attestation.NewAssetDTO{AssetType: "phone"})
			Expect(err).To(MatchError(attestation.ErrRecordCompleted))
		})

		It("refuses completion once the campaign is closed", func() {
			_, err := service.CancelCampaign(ctx, campaign.ID)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.CompleteRecord(ctx, record.ID, viewerOf(emp))
			Expect(err).To(MatchError(attestation.ErrInvalidCampaignState))
		})
	})

	Describe("Dashboard", func() {
		It("counts records by status and invites", func() {
			a := createUser("a@x.com", "")
			createUser("b@x.com", "")
			createAsset("ghost@x.com", nil, nil)

			c := launch(allScope("Progress"))
			_, err := service.CompleteRecord(ctx, recordOf(c.ID, a.ID).ID, viewerOf(a))
			Expect(err).NotTo(HaveOccurred())

			d, err := service.Dashboard(ctx, c.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(d.TotalRecords).To(Equal(int64(3)))
			Expect(d.RecordsByStatus[attestation.RecordStatusCompleted]).To(Equal(int64(1)))
			Expect(d.RecordsByStatus[attestation.RecordStatusPending]).To(Equal(int64(2)))
			Expect(d.RecordsByStatus[attestation.RecordStatusInProgress]).To(BeZero())
			Expect(d.OpenInvites).To(Equal(int64(1)))
			Expect(d.ConvertedInvites).To(BeZero())
			Expect(d.CompletionPercent).To(BeNumerically("~", 33.33, 0.01))
		})
	})
})
