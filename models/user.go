package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Role string

const (
	RoleUser    Role = "user"
	RoleCompany Role = "company"
	RoleAdmin   Role = "admin"
)

const DefaultPhoto = "/images/default-avatar.png"

type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password,omitempty" json:"-"`
	GoogleID     *string            `bson:"googleId,omitempty" json:"-"`
	Role         Role               `bson:"role" json:"role"`

	// Profile fields
	FirstName string `bson:"firstName" json:"firstName"`
	LastName  string `bson:"lastName" json:"lastName"`
	Headline  string `bson:"headline,omitempty" json:"headline,omitempty"`
	Bio       string `bson:"bio,omitempty" json:"bio,omitempty"`
	Photo     string `bson:"photo" json:"photo"`
	CVVideo   string `bson:"cvVideo,omitempty" json:"cvVideo,omitempty"`

	Phone    string `bson:"phone,omitempty" json:"phone,omitempty"`
	Address  string `bson:"address,omitempty" json:"address,omitempty"`
	City     string `bson:"city,omitempty" json:"city,omitempty"`
	Country  string `bson:"country,omitempty" json:"country,omitempty"`
	Website  string `bson:"website,omitempty" json:"website,omitempty"`
	LinkedIn string `bson:"linkedin,omitempty" json:"linkedin,omitempty"`
	GitHub   string `bson:"github,omitempty" json:"github,omitempty"`

	// Company accounts only
	CompanyName        string `bson:"companyName,omitempty" json:"companyName,omitempty"`
	CompanyDescription string `bson:"companyDescription,omitempty" json:"companyDescription,omitempty"`
	CompanySize        string `bson:"companySize,omitempty" json:"companySize,omitempty"`
	Industry           string `bson:"industry,omitempty" json:"industry,omitempty"`

	Skills      []Skill      `bson:"skills" json:"skills"`
	Experiences []Experience `bson:"experiences" json:"experiences"`
	Education   []Education  `bson:"education" json:"education"`
	Projects    []Project    `bson:"projects" json:"projects"`

	Connections        []primitive.ObjectID `bson:"connections" json:"connections"`
	PendingConnections []primitive.ObjectID `bson:"pendingConnections" json:"pendingConnections"`
	Followers          []primitive.ObjectID `bson:"followers" json:"followers"`
	Following          []primitive.ObjectID `bson:"following" json:"following"`

	IsBanned  bool   `bson:"isBanned" json:"isBanned"`
	BanReason string `bson:"banReason,omitempty" json:"banReason,omitempty"`

	CreatedAt time.Time  `bson:"createdAt" json:"createdAt"`
	LastLogin *time.Time `bson:"lastLogin,omitempty" json:"lastLogin,omitempty"`
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// DisplayName is the company name for company accounts and the full name otherwise.
func (u *User) DisplayName() string {
	if u.Role == RoleCompany && u.CompanyName != "" {
		return u.CompanyName
	}
	return u.FullName()
}

func (u *User) IsConnectedTo(id primitive.ObjectID) bool { return ContainsID(u.Connections, id) }
func (u *User) IsFollowing(id primitive.ObjectID) bool   { return ContainsID(u.Following, id) }
func (u *User) HasPendingFrom(id primitive.ObjectID) bool {
	return ContainsID(u.PendingConnections, id)
}

// Summary is the slice of a user embedded in other responses.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:          u.ID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Photo:       u.Photo,
		Headline:    u.Headline,
		CompanyName: u.CompanyName,
		Role:        u.Role,
	}
}

type UserSummary struct {
	ID          primitive.ObjectID `json:"id"`
	FirstName   string             `json:"firstName"`
	LastName    string             `json:"lastName"`
	Photo       string             `json:"photo"`
	Headline    string             `json:"headline,omitempty"`
	CompanyName string             `json:"companyName,omitempty"`
	Role        Role               `json:"role"`
}

// UnknownUser stands in for a weak reference that no longer resolves.
func UnknownUser(id primitive.ObjectID) UserSummary {
	return UserSummary{ID: id, FirstName: "Unknown", LastName: "User", Photo: DefaultPhoto, Role: RoleUser}
}

func ContainsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

type SkillLevel string

const (
	LevelBeginner     SkillLevel = "Beginner"
	LevelIntermediate SkillLevel = "Intermediate"
	LevelAdvanced     SkillLevel = "Advanced"
	LevelExpert       SkillLevel = "Expert"
)

func (l SkillLevel) Valid() bool {
	switch l {
	case LevelBeginner, LevelIntermediate, LevelAdvanced, LevelExpert:
		return true
	}
	return false
}

type Skill struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Technology  string             `bson:"technology" json:"technology"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Level       SkillLevel         `bson:"level" json:"level"`
}

type Experience struct {
	ID           primitive.ObjectID `bson:"_id" json:"id"`
	Company      string             `bson:"company" json:"company"`
	Position     string             `bson:"position" json:"position"`
	StartDate    time.Time          `bson:"startDate" json:"startDate"`
	EndDate      *time.Time         `bson:"endDate,omitempty" json:"endDate,omitempty"`
	Current      bool               `bson:"current" json:"current"`
	Description  string             `bson:"description,omitempty" json:"description,omitempty"`
	Type         JobType            `bson:"type,omitempty" json:"type,omitempty"`
	Technologies []string           `bson:"technologies" json:"technologies"`
}

type Education struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Institution string             `bson:"institution" json:"institution"`
	Degree      string             `bson:"degree" json:"degree"`
	Field       string             `bson:"field,omitempty" json:"field,omitempty"`
	StartDate   *time.Time         `bson:"startDate,omitempty" json:"startDate,omitempty"`
	EndDate     *time.Time         `bson:"endDate,omitempty" json:"endDate,omitempty"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
}

type Project struct {
	ID           primitive.ObjectID `bson:"_id" json:"id"`
	Title        string             `bson:"title" json:"title"`
	Description  string             `bson:"description,omitempty" json:"description,omitempty"`
	Technologies []string           `bson:"technologies" json:"technologies"`
	Link         string             `bson:"link,omitempty" json:"link,omitempty"`
	StartDate    *time.Time         `bson:"startDate,omitempty" json:"startDate,omitempty"`
	EndDate      *time.Time         `bson:"endDate,omitempty" json:"endDate,omitempty"`
}

// EnsureLists replaces nil slices with empty ones so the stored document
// carries arrays that $push and $addToSet can target.
func (u *User) EnsureLists() {
	if u.Skills == nil {
		u.Skills = []Skill{}
	}
	if u.Experiences == nil {
		u.Experiences = []Experience{}
	}
	if u.Education == nil {
		u.Education = []Education{}
	}
	if u.Projects == nil {
		u.Projects = []Project{}
	}
	if u.Connections == nil {
		u.Connections = []primitive.ObjectID{}
	}
	if u.PendingConnections == nil {
		u.PendingConnections = []primitive.ObjectID{}
	}
	if u.Followers == nil {
		u.Followers = []primitive.ObjectID{}
	}
	if u.Following == nil {
		u.Following = []primitive.ObjectID{}
	}
}
