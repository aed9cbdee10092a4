package agentloop

// Profile is the identity of the agent a Runner serves: who it is, what it
// is told to do, and which model speaks for it.
type Profile struct {
	Name        string `mapstructure:"name" yaml:"name"`
	Description string `mapstructure:"description" yaml:"description"`
	Instruction string `mapstructure:"instruction" yaml:"instruction"`
	Provider    string `mapstructure:"provider" yaml:"provider"`
	Model       string `mapstructure:"model" yaml:"model"`
	UserID      string `mapstructure:"user_id" yaml:"user_id"`
}

const (
	DefaultAgentName        = "openapi-generator"
	DefaultAgentDescription = "An assistant that can generate a compliant OpenAPI definitions from API specifications."
	DefaultAgentInstruction = "You are an expert API designer that generates OpenAPI-compliant YAML files from an API description. " +
		"Create an OpenAPI definition YAML from the API description provided by the user, check it for errors using the tool, " +
		"make any necessary changes to eliminate errors, and return the final output to the user."
	DefaultProvider = "gemini"
	DefaultModel    = "gemini-2.5-flash"
	DefaultUserID   = "tmp-user"
)

// DefaultProfile returns the OpenAPI designer agent.
func DefaultProfile() Profile {
	return Profile{
		Name:        DefaultAgentName,
		Description: DefaultAgentDescription,
		Instruction: DefaultAgentInstruction,
		Provider:    DefaultProvider,
		Model:       DefaultModel,
		UserID:      DefaultUserID,
	}
}

// withDefaults fills empty fields from DefaultProfile.
func (p Profile) withDefaults() Profile {
	d := DefaultProfile()
	if p.Name == "" {
		p.Name = d.Name
	}
	if p.Instruction == "" {
		p.Instruction = d.Instruction
	}
	if p.Model == "" {
		p.Model = d.Model
	}
	if p.UserID == "" {
		p.UserID = d.UserID
	}
	return p
}
