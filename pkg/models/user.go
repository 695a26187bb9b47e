package models

// ProfileType is the role a member signs up as
type ProfileType string

const (
	ProfileFounder   ProfileType = "founder"
	ProfileCofounder ProfileType = "cofounder"
	ProfileMentor    ProfileType = "mentor"
	ProfileInvestor  ProfileType = "investor"
)

// User is a member profile as returned by the backend
type User struct {
	ID                     string       `json:"id"`
	Email                  string       `json:"email,omitempty"`
	FullName               string       `json:"full_name"`
	Bio                    string       `json:"bio"`
	StartupIdea            string       `json:"startupIdea"`
	Role                   string       `json:"role,omitempty"`
	City                   string       `json:"city,omitempty"`
	State                  string       `json:"state,omitempty"`
	ProfilePicURL          string       `json:"profile_pic_url,omitempty"`
	Skills                 []string     `json:"skills,omitempty"`
	Experiences            []Experience `json:"experiences,omitempty"`
	Education              []Education  `json:"education,omitempty"`
	AccomplishmentProjects []Project    `json:"accomplishment_projects,omitempty"`
	Links                  []Link       `json:"links,omitempty"`
	LookingFor             string       `json:"lookingFor"`
	ProfileType            ProfileType  `json:"profileType"`
	CreatedAt              string       `json:"createdAt,omitempty"`
}

// Experience is a work history entry
type Experience struct {
	Company     string `json:"company"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
}

// Education is a school entry
type Education struct {
	School       string `json:"school"`
	DegreeName   string `json:"degree_name,omitempty"`
	FieldOfStudy string `json:"field_of_study,omitempty"`
}

// Project is an accomplishment project
type Project struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Link is a named external URL on a profile
type Link struct {
	Name string `json:"name" yaml:"name" validate:"required"`
	URL  string `json:"url" yaml:"url" validate:"required,url"`
}

// AuthTokens are the credentials persisted with a session
type AuthTokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresIn    int    `json:"expiresIn,omitempty"`
}

// ProfileSetup is the payload collected by the multi-step profile setup
type ProfileSetup struct {
	FullName       string      `json:"full_name" yaml:"full_name" validate:"required,max=100"`
	Email          string      `json:"email,omitempty" yaml:"email" validate:"omitempty,email"`
	Bio            string      `json:"bio" yaml:"bio" validate:"required,max=1000"`
	StartupIdea    string      `json:"startupIdea" yaml:"startup_idea" validate:"required,max=500"`
	LookingFor     string      `json:"lookingFor" yaml:"looking_for" validate:"required,max=500"`
	ProfileType    ProfileType `json:"profileType" yaml:"profile_type" validate:"required,oneof=founder cofounder mentor investor"`
	LinkedInURL    string      `json:"linkedinId" yaml:"linkedin_url" validate:"required,linkedin"`
	GitHubUsername string      `json:"githubUsername,omitempty" yaml:"github_username" validate:"omitempty,github"`
	Links          []Link      `json:"links" yaml:"links" validate:"dive"`
}
