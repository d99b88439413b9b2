package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"networked/models"
	"networked/services"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	seedUsers      int
	seedCompanies  int
	seedPassword   string
	seedAdminEmail string
	seedRandom     int64
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill the database with demo accounts, posts and jobs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, flush, err := setup()
		if err != nil {
			return err
		}
		defer flush()
		if err := cfg.Validate(true); err != nil {
			return err
		}
		store, closeStore, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		report, err := Seed(ctx, services.New(store, nil), SeedOptions{
			Users:      seedUsers,
			Companies:  seedCompanies,
			Password:   seedPassword,
			AdminEmail: seedAdminEmail,
			Seed:       seedRandom,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d users, %d companies, %d posts, %d jobs, %d connections, %d applications\n",
			report.Users, report.Companies, report.Posts, report.Jobs, report.Connections, report.Applications)
		return nil
	},
}

func init() {
	seedCmd.Flags().IntVar(&seedUsers, "users", 20, "number of member accounts")
	seedCmd.Flags().IntVar(&seedCompanies, "companies", 4, "number of company accounts")
	seedCmd.Flags().StringVar(&seedPassword, "password", "password", "password for every seeded account")
	seedCmd.Flags().StringVar(&seedAdminEmail, "admin-email", "admin@networked.local", "admin account to create, empty to skip")
	seedCmd.Flags().Int64Var(&seedRandom, "seed", 0, "random seed, 0 for a random one")
}

type SeedOptions struct {
	Users      int
	Companies  int
	Password   string
	AdminEmail string
	Seed       int64
}

type SeedReport struct {
	Users        int
	Companies    int
	Posts        int
	Jobs         int
	Connections  int
	Applications int
}

var seedLevels = []models.SkillLevel{models.LevelBeginner, models.LevelIntermediate, models.LevelAdvanced, models.LevelExpert}
var seedJobTypes = []models.JobType{models.JobFullTime, models.JobPartTime, models.JobInternship, models.JobFreelance, models.JobContract}

// Seed creates demo data through the services, so every invariant the API
// enforces holds for it too.
func Seed(ctx context.Context, svc *services.Services, o SeedOptions) (*SeedReport, error) {
	if o.Seed == 0 {
		o.Seed = time.Now().UnixNano()
	}
	f := gofakeit.New(o.Seed)
	report := &SeedReport{}
	run := f.Uint32()

	register := func(i int, role models.Role) (*models.User, error) {
		first, last := f.FirstName(), f.LastName()
		reg := services.Registration{
			Email:     strings.ToLower(fmt.Sprintf("%s.%s.%d.%d@example.com", first, last, run, i)),
			Password:  o.Password,
			Password2: o.Password,
			FirstName: first,
			LastName:  last,
			Role:      role,
		}
		if role == models.RoleCompany {
			reg.CompanyName = f.Company()
		}
		return svc.Accounts.Register(ctx, reg)
	}

	if o.AdminEmail != "" {
		if err := seedAdmin(ctx, svc, o.AdminEmail, o.Password); err != nil {
			return nil, err
		}
	}

	var members []*models.User
	for i := 0; i < o.Users; i++ {
		u, err := register(i, models.RoleUser)
		if err != nil {
			return nil, errors.Wrap(err, "register member")
		}
		headline := f.JobTitle()
		bio := f.Sentence(12)
		city := f.City()
		if _, err := svc.Accounts.UpdateProfile(ctx, u, services.ProfileInput{Headline: &headline, Bio: &bio, City: &city}); err != nil {
			return nil, errors.Wrap(err, "update member profile")
		}
		for s := 0; s < f.Number(1, 3); s++ {
			if _, err := svc.Accounts.AddSkill(ctx, u, models.Skill{
				Title:      f.HackerNoun(),
				Technology: f.ProgrammingLanguage(),
				Level:      seedLevels[f.Number(0, len(seedLevels)-1)],
			}); err != nil {
				return nil, errors.Wrap(err, "add skill")
			}
		}
		if _, err := svc.Content.CreatePost(ctx, u, f.HackerPhrase(), models.VisibilityPublic, nil); err != nil {
			return nil, errors.Wrap(err, "create post")
		}
		report.Posts++
		members = append(members, u)
	}
	report.Users = len(members)

	// each member asks the next one to connect, and every other request is accepted
	for i := 0; i+1 < len(members); i++ {
		from, to := members[i], members[i+1]
		if err := svc.Network.RequestConnection(ctx, from, to.ID); err != nil {
			return nil, errors.Wrap(err, "request connection")
		}
		if i%2 == 0 {
			if err := svc.Network.AcceptConnection(ctx, to, from.ID); err != nil {
				return nil, errors.Wrap(err, "accept connection")
			}
			report.Connections++
		}
	}

	for i := 0; i < o.Companies; i++ {
		company, err := register(o.Users+i, models.RoleCompany)
		if err != nil {
			return nil, errors.Wrap(err, "register company")
		}
		report.Companies++
		for j := 0; j < f.Number(1, 3); j++ {
			low := f.Number(30, 80) * 1000
			high := low + f.Number(5, 40)*1000
			deadline := time.Now().AddDate(0, 0, f.Number(7, 60))
			job, err := svc.Jobs.CreateJob(ctx, company, services.JobInput{
				Title:        f.JobTitle(),
				Description:  f.Paragraph(1, 3, 12, " "),
				Requirements: []string{f.HackerPhrase(), f.HackerPhrase()},
				Type:         seedJobTypes[f.Number(0, len(seedJobTypes)-1)],
				Location:     f.City(),
				Remote:       f.Bool(),
				SalaryMin:    &low,
				SalaryMax:    &high,
				Skills:       []string{f.ProgrammingLanguage()},
				Deadline:     &deadline,
			})
			if err != nil {
				return nil, errors.Wrap(err, "create job")
			}
			report.Jobs++
			if len(members) == 0 {
				continue
			}
			applicant := members[f.Number(0, len(members)-1)]
			if _, err := svc.Jobs.Apply(ctx, applicant, job.ID, f.Sentence(20)); err != nil {
				return nil, errors.Wrap(err, "apply")
			}
			report.Applications++
		}
		for _, m := range members {
			if f.Bool() {
				if err := svc.Network.Follow(ctx, m, company.ID); err != nil {
					return nil, errors.Wrap(err, "follow company")
				}
			}
		}
	}

	zap.S().Infof("[Seed] %+v", *report)
	return report, nil
}

// seedAdmin creates the admin account unless the email is taken. Admins
// cannot register through the API.
func seedAdmin(ctx context.Context, svc *services.Services, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := svc.Store.Users.FindByEmail(ctx, email); err == nil {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hash admin password")
	}
	admin := &models.User{
		ID:           primitive.NewObjectID(),
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
		FirstName:    "Site",
		LastName:     "Admin",
		Photo:        models.DefaultPhoto,
		CreatedAt:    time.Now(),
	}
	if err := svc.Store.Users.Create(ctx, admin); err != nil {
		return errors.Wrap(err, "create admin")
	}
	zap.S().Infof("[Seed] admin account %s", email)
	return nil
}
