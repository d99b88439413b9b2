package services

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"networked/models"
	"networked/repository"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

type Accounts struct {
	users repository.UserRepository
}

func NewAccounts(users repository.UserRepository) *Accounts {
	return &Accounts{users: users}
}

type Registration struct {
	Email       string
	Password    string
	Password2   string
	FirstName   string
	LastName    string
	Role        models.Role
	CompanyName string
	Photo       string
}

// Register validates the form field by field and creates the account.
func (s *Accounts) Register(ctx context.Context, r Registration) (*models.User, error) {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.CompanyName = strings.TrimSpace(r.CompanyName)
	if r.Role == "" {
		r.Role = models.RoleUser
	}

	fields := map[string]string{}
	if r.Email == "" {
		fields["email"] = "Email is required"
	} else if _, err := mail.ParseAddress(r.Email); err != nil {
		fields["email"] = "Email is not valid"
	}
	if r.Password == "" {
		fields["password"] = "Password is required"
	} else if len(r.Password) < minPasswordLength {
		fields["password"] = "Password must be at least 6 characters"
	}
	if r.Password != r.Password2 {
		fields["password2"] = "Passwords do not match"
	}
	if r.FirstName == "" {
		fields["firstName"] = "First name is required"
	}
	if r.LastName == "" {
		fields["lastName"] = "Last name is required"
	}
	if r.Role != models.RoleUser && r.Role != models.RoleCompany {
		fields["role"] = "Role must be user or company"
	}
	if r.Role == models.RoleCompany && r.CompanyName == "" {
		fields["companyName"] = "Company name is required for company accounts"
	}
	if len(fields) > 0 {
		return nil, FieldErrors(fields)
	}

	if _, err := s.users.FindByEmail(ctx, r.Email); err == nil {
		return nil, FieldErrors(map[string]string{"email": "Email is already registered"})
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, errors.Wrap(err, "check email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(r.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	user := &models.User{
		Email:        r.Email,
		PasswordHash: string(hash),
		Role:         r.Role,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Photo:        r.Photo,
		CreatedAt:    time.Now(),
	}
	if user.Photo == "" {
		user.Photo = models.DefaultPhoto
	}
	if r.Role == models.RoleCompany {
		user.CompanyName = r.CompanyName
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, FieldErrors(map[string]string{"email": "Email is already registered"})
		}
		return nil, errors.Wrap(err, "create user")
	}
	return user, nil
}

// Login checks the credentials and records the login time.
func (s *Accounts) Login(ctx context.Context, email, password string) (*models.User, error) {
	invalid := Unauthorized("Invalid email or password")
	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, errors.Wrap(err, "load user")
	}
	if user.PasswordHash == "" {
		return nil, invalid
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, invalid
	}
	if user.IsBanned {
		return nil, Forbidden(banMessage(user))
	}

	now := time.Now()
	if err := s.users.SetLastLogin(ctx, user.ID, now); err != nil {
		return nil, errors.Wrap(err, "record login")
	}
	user.LastLogin = &now
	return user, nil
}

func banMessage(u *models.User) string {
	if u.BanReason == "" {
		return "Your account has been banned"
	}
	return "Your account has been banned. Reason: " + u.BanReason
}

// GoogleProfile is what the Google userinfo endpoint reports.
type GoogleProfile struct {
	ID         string
	Email      string
	GivenName  string
	FamilyName string
	Picture    string
}

// GoogleSignIn links the Google account to the user with the same email, or
// creates a password-less user.
func (s *Accounts) GoogleSignIn(ctx context.Context, p GoogleProfile) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(p.Email))
	if email == "" {
		return nil, Validation("Email not provided by Google")
	}

	user, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if user.IsBanned {
			return nil, Forbidden(banMessage(user))
		}
		if user.GoogleID == nil && p.ID != "" {
			if err := s.users.LinkGoogle(ctx, user.ID, p.ID); err != nil {
				return nil, errors.Wrap(err, "link google account")
			}
			user.GoogleID = &p.ID
		}
	case errors.Is(err, repository.ErrNotFound):
		user = &models.User{
			Email:     email,
			Role:      models.RoleUser,
			FirstName: p.GivenName,
			LastName:  p.FamilyName,
			Photo:     p.Picture,
			CreatedAt: time.Now(),
		}
		if p.ID != "" {
			user.GoogleID = &p.ID
		}
		if user.FirstName == "" {
			user.FirstName = strings.SplitN(email, "@", 2)[0]
		}
		if user.Photo == "" {
			user.Photo = models.DefaultPhoto
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, errors.Wrap(err, "create google user")
		}
	default:
		return nil, errors.Wrap(err, "load user")
	}

	now := time.Now()
	if err := s.users.SetLastLogin(ctx, user.ID, now); err != nil {
		return nil, errors.Wrap(err, "record login")
	}
	user.LastLogin = &now
	return user, nil
}

func (s *Accounts) Get(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, orNotFound(err, "User not found", "load user")
	}
	return user, nil
}

// ProfileInput holds the editable fields. Company fields are ignored for
// non-company accounts.
type ProfileInput struct {
	FirstName          *string
	LastName           *string
	Headline           *string
	Bio                *string
	Phone              *string
	Address            *string
	City               *string
	Country            *string
	Website            *string
	LinkedIn           *string
	GitHub             *string
	CompanyName        *string
	CompanyDescription *string
	CompanySize        *string
	Industry           *string
	Photo              string
	CVVideo            string
}

func (s *Accounts) UpdateProfile(ctx context.Context, user *models.User, in ProfileInput) (*models.User, error) {
	fields := map[string]string{}
	if in.FirstName != nil && strings.TrimSpace(*in.FirstName) == "" {
		fields["firstName"] = "First name cannot be empty"
	}
	if in.LastName != nil && strings.TrimSpace(*in.LastName) == "" {
		fields["lastName"] = "Last name cannot be empty"
	}
	if len(fields) > 0 {
		return nil, FieldErrors(fields)
	}

	upd := repository.ProfileUpdate{
		FirstName: trimmed(in.FirstName),
		LastName:  trimmed(in.LastName),
		Headline:  trimmed(in.Headline),
		Bio:       trimmed(in.Bio),
		Phone:     trimmed(in.Phone),
		Address:   trimmed(in.Address),
		City:      trimmed(in.City),
		Country:   trimmed(in.Country),
		Website:   trimmed(in.Website),
		LinkedIn:  trimmed(in.LinkedIn),
		GitHub:    trimmed(in.GitHub),
	}
	if user.Role == models.RoleCompany {
		upd.CompanyName = trimmed(in.CompanyName)
		upd.CompanyDescription = trimmed(in.CompanyDescription)
		upd.CompanySize = trimmed(in.CompanySize)
		upd.Industry = trimmed(in.Industry)
	}
	if in.Photo != "" {
		upd.Photo = &in.Photo
	}
	if in.CVVideo != "" {
		upd.CVVideo = &in.CVVideo
	}

	if err := s.users.UpdateProfile(ctx, user.ID, upd); err != nil {
		return nil, orNotFound(err, "User not found", "update profile")
	}
	return s.Get(ctx, user.ID)
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}

func (s *Accounts) AddSkill(ctx context.Context, user *models.User, sk models.Skill) (*models.Skill, error) {
	sk.Title = strings.TrimSpace(sk.Title)
	sk.Technology = strings.TrimSpace(sk.Technology)
	if sk.Level == "" {
		sk.Level = models.LevelBeginner
	}
	fields := map[string]string{}
	if sk.Title == "" {
		fields["title"] = "Title is required"
	}
	if sk.Technology == "" {
		fields["technology"] = "Technology is required"
	}
	if !sk.Level.Valid() {
		fields["level"] = "Level must be Beginner, Intermediate, Advanced or Expert"
	}
	if len(fields) > 0 {
		return nil, FieldErrors(fields)
	}
	sk.ID = primitive.NewObjectID()
	if err := s.users.PushItem(ctx, user.ID, repository.ListSkills, sk); err != nil {
		return nil, orNotFound(err, "User not found", "add skill")
	}
	return &sk, nil
}

func (s *Accounts) AddExperience(ctx context.Context, user *models.User, exp models.Experience) (*models.Experience, error) {
	exp.Company = strings.TrimSpace(exp.Company)
	exp.Position = strings.TrimSpace(exp.Position)
	fields := map[string]string{}
	if exp.Company == "" {
		fields["company"] = "Company is required"
	}
	if exp.Position == "" {
		fields["position"] = "Position is required"
	}
	if exp.StartDate.IsZero() {
		fields["startDate"] = "Start date is required"
	}
	if exp.Type != "" && !exp.Type.Valid() {
		fields["type"] = "Unknown employment type"
	}
	if exp.EndDate != nil && !exp.Current && exp.EndDate.Before(exp.StartDate) {
		fields["endDate"] = "End date must be after the start date"
	}
	if len(fields) > 0 {
		return nil, FieldErrors(fields)
	}
	if exp.Current {
		exp.EndDate = nil
	}
	if exp.Technologies == nil {
		exp.Technologies = []string{}
	}
	exp.ID = primitive.NewObjectID()
	if err := s.users.PushItem(ctx, user.ID, repository.ListExperiences, exp); err != nil {
		return nil, orNotFound(err, "User not found", "add experience")
	}
	return &exp, nil
}

func (s *Accounts) AddEducation(ctx context.Context, user *models.User, edu models.Education) (*models.Education, error) {
	edu.Institution = strings.TrimSpace(edu.Institution)
	edu.Degree = strings.TrimSpace(edu.Degree)
	fields := map[string]string{}
	if edu.Institution == "" {
		fields["institution"] = "Institution is required"
	}
	if edu.Degree == "" {
		fields["degree"] = "Degree is required"
	}
	if len(fields) > 0 {
		return nil, FieldErrors(fields)
	}
	edu.ID = primitive.NewObjectID()
	if err := s.users.PushItem(ctx, user.ID, repository.ListEducation, edu); err != nil {
		return nil, orNotFound(err, "User not found", "add education")
	}
	return &edu, nil
}

func (s *Accounts) AddProject(ctx context.Context, user *models.User, p models.Project) (*models.Project, error) {
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" {
		return nil, FieldErrors(map[string]string{"title": "Title is required"})
	}
	if p.Technologies == nil {
		p.Technologies = []string{}
	}
	p.ID = primitive.NewObjectID()
	if err := s.users.PushItem(ctx, user.ID, repository.ListProjects, p); err != nil {
		return nil, orNotFound(err, "User not found", "add project")
	}
	return &p, nil
}

// RemoveItem deletes one embedded profile entry by id.
func (s *Accounts) RemoveItem(ctx context.Context, user *models.User, list repository.ProfileList, itemID primitive.ObjectID) error {
	removed, err := s.users.PullItem(ctx, user.ID, list, itemID)
	if err != nil {
		return errors.Wrapf(err, "remove %s item", list)
	}
	if !removed {
		return NotFound("Item not found")
	}
	return nil
}

type ProfileView struct {
	User           *models.User `json:"user"`
	IsOwner        bool         `json:"isOwner"`
	IsConnected    bool         `json:"isConnected"`
	IsFollowing    bool         `json:"isFollowing"`
	PendingRequest bool         `json:"pendingRequest"`
}

// ViewProfile shows a profile with the viewer's relation to it. Banned
// profiles are only visible to admins and their owner.
func (s *Accounts) ViewProfile(ctx context.Context, viewer *models.User, id primitive.ObjectID) (*ProfileView, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	isOwner := user.ID == viewer.ID
	if user.IsBanned && !isOwner && viewer.Role != models.RoleAdmin {
		return nil, NotFound("User not found")
	}
	return &ProfileView{
		User:           user,
		IsOwner:        isOwner,
		IsConnected:    viewer.IsConnectedTo(user.ID),
		IsFollowing:    viewer.IsFollowing(user.ID),
		PendingRequest: user.HasPendingFrom(viewer.ID),
	}, nil
}
