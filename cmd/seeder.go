package cmd

import (
	"fmt"
	"log"

	assetDatamodel "github.com/frahmantamala/asset-attestation/internal/core/datamodel/asset"
	attestationDatamodel "github.com/frahmantamala/asset-attestation/internal/core/datamodel/attestation"
	auditDatamodel "github.com/frahmantamala/asset-attestation/internal/core/datamodel/audit"
	companyDatamodel "github.com/frahmantamala/asset-attestation/internal/core/datamodel/company"
	userDatamodel "github.com/frahmantamala/asset-attestation/internal/core/datamodel/user"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample companies, users and assets for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, db, gdb, err := openStore()
		if err != nil {
			log.Fatalf("failed to open store: %v", err)
		}
		defer db.Close()

		if clearData {
			if err := clearSeedData(gdb); err != nil {
				log.Fatalf("failed to clear data: %v", err)
			}
			fmt.Println("Cleared existing data")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte("password"), cfg.Security.BCryptCost)
		if err != nil {
			log.Fatalf("failed to hash seed password: %v", err)
		}

		users := []userDatamodel.User{
			{Email: "admin@example.com", FirstName: "Padil", LastName: "Admin", Role: "admin", ProfileComplete: true},
			{Email: "maria@example.com", FirstName: "Maria", LastName: "Santos", Role: "manager", ProfileComplete: true},
			{
				Email: "fadhil@example.com", FirstName: "Fadhil", LastName: "Rahman", Role: "employee",
				ManagerFirstName: "Maria", ManagerLastName: "Santos", ManagerEmail: "maria@example.com", ProfileComplete: true,
			},
		}

		byEmail := make(map[string]*userDatamodel.User, len(users))
		for i := range users {
			u := users[i]
			attrs := userDatamodel.User{
				FirstName:        u.FirstName,
				LastName:         u.LastName,
				PasswordHash:     string(hash),
				Role:             u.Role,
				ManagerFirstName: u.ManagerFirstName,
				ManagerLastName:  u.ManagerLastName,
				ManagerEmail:     u.ManagerEmail,
				ProfileComplete:  u.ProfileComplete,
			}
			if err := gdb.Where(userDatamodel.User{Email: u.Email}).Attrs(attrs).FirstOrCreate(&users[i]).Error; err != nil {
				log.Fatalf("failed to seed user %s: %v", u.Email, err)
			}
			byEmail[u.Email] = &users[i]
			fmt.Printf("Seeded user: %s (%s)\n", users[i].Email, users[i].Role)
		}

		companies := []companyDatamodel.Company{
			{Name: "Acme Corp", Description: "Head office"},
			{Name: "Globex", Description: "Regional subsidiary"},
		}
		for i := range companies {
			c := companies[i]
			if err := gdb.Where(companyDatamodel.Company{Name: c.Name}).Attrs(companyDatamodel.Company{Description: c.Description}).FirstOrCreate(&companies[i]).Error; err != nil {
				log.Fatalf("failed to seed company %s: %v", c.Name, err)
			}
			fmt.Printf("Seeded company: %s\n", c.Name)
		}

		manager := byEmail["maria@example.com"]
		employee := byEmail["fadhil@example.com"]

		assets := []assetDatamodel.Asset{
			{
				EmployeeFirstName: employee.FirstName, EmployeeLastName: employee.LastName, EmployeeEmail: employee.Email, OwnerID: &employee.ID,
				ManagerFirstName: manager.FirstName, ManagerLastName: manager.LastName, ManagerEmail: manager.Email, ManagerID: &manager.ID,
				CompanyID: &companies[0].ID, AssetType: "laptop", Make: "Lenovo", Model: "ThinkPad T14",
				SerialNumber: strPtr("SN-LT-0001"), AssetTag: strPtr("AT-0001"), Status: "active",
			},
			{
				EmployeeFirstName: employee.FirstName, EmployeeLastName: employee.LastName, EmployeeEmail: employee.Email, OwnerID: &employee.ID,
				ManagerFirstName: manager.FirstName, ManagerLastName: manager.LastName, ManagerEmail: manager.Email, ManagerID: &manager.ID,
				CompanyID: &companies[0].ID, AssetType: "mobile_phone", Make: "Apple", Model: "iPhone 15",
				SerialNumber: strPtr("SN-MP-0002"), AssetTag: strPtr("AT-0002"), Status: "active",
			},
			{
				EmployeeFirstName: "Erin", EmployeeLastName: "Walker", EmployeeEmail: "erin@example.com",
				ManagerFirstName: manager.FirstName, ManagerLastName: manager.LastName, ManagerEmail: manager.Email, ManagerID: &manager.ID,
				CompanyID: &companies[1].ID, AssetType: "laptop", Make: "Dell", Model: "Latitude 7440",
				SerialNumber: strPtr("SN-LT-0003"), AssetTag: strPtr("AT-0003"), Status: "active",
			},
		}
		for i := range assets {
			a := assets[i]
			if err := gdb.Where(assetDatamodel.Asset{SerialNumber: a.SerialNumber}).Attrs(a).FirstOrCreate(&assets[i]).Error; err != nil {
				log.Fatalf("failed to seed asset %s: %v", *a.SerialNumber, err)
			}
			fmt.Printf("Seeded asset: %s %s for %s\n", a.Make, a.Model, a.EmployeeEmail)
		}

		fmt.Println("Seed data loaded; every seeded user signs in with password \"password\"")
	},
}

// clearSeedData removes rows child tables first so foreign keys never block the delete.
func clearSeedData(db *gorm.DB) error {
	models := []interface{}{
		&attestationDatamodel.NewAsset{},
		&attestationDatamodel.PendingInvite{},
		&attestationDatamodel.Record{},
		&attestationDatamodel.Campaign{},
		&auditDatamodel.Log{},
		&assetDatamodel.Asset{},
		&companyDatamodel.Company{},
		&userDatamodel.User{},
	}
	return db.Transaction(func(tx *gorm.DB) error {
		for _, m := range models {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func strPtr(s string) *string {
	return &s
}
