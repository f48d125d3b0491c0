package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ArtifactKind identifies the content of a phase artifact.
type ArtifactKind string

// Phase artifact kinds.
const (
	KindCustomerDiscovery ArtifactKind = "CUSTOMER_DISCOVERY"
	KindProductSpec       ArtifactKind = "PRODUCT_SPEC"
	KindDesignSpec        ArtifactKind = "DESIGN_SPEC"
	KindBuildPlan         ArtifactKind = "BUILD_PLAN"
	KindQAReport          ArtifactKind = "QA_REPORT"
	KindDeployReport      ArtifactKind = "DEPLOY_REPORT"
)

// Keys of Job.Artifacts.
const (
	ArtifactKeyCustomer  = "customer"
	ArtifactKeyProduct   = "product"
	ArtifactKeyDesign    = "design"
	ArtifactKeyBuildPlan = "buildPlan"
	ArtifactKeyQA        = "qa"
	ArtifactKeyDeploy    = "deploy"
)

// PhaseStep describes one automatic transition and the artifact it writes.
type PhaseStep struct {
	From Phase
	To   Phase
	Kind ArtifactKind
	Dir  string // Per-job artifact directory
	Ext  string // json or md
	Key  string // Key in Job.Artifacts
	Note string // PHASE_SET note
}

var phaseSteps = map[Phase]PhaseStep{
	PhaseCustomerDiscovery: {From: PhaseCustomerDiscovery, To: PhaseProduct, Kind: KindCustomerDiscovery, Dir: "customer", Ext: "json", Key: ArtifactKeyCustomer, Note: "customer discovery complete"},
	PhaseProduct:           {From: PhaseProduct, To: PhaseDesign, Kind: KindProductSpec, Dir: "product", Ext: "json", Key: ArtifactKeyProduct, Note: "product spec complete"},
	PhaseDesign:            {From: PhaseDesign, To: PhaseBuild, Kind: KindDesignSpec, Dir: "design", Ext: "json", Key: ArtifactKeyDesign, Note: "design spec complete"},
	PhaseBuild:             {From: PhaseBuild, To: PhaseQA, Kind: KindBuildPlan, Dir: "build", Ext: "md", Key: ArtifactKeyBuildPlan, Note: "build plan complete"},
	PhaseQA:                {From: PhaseQA, To: PhaseDeploy, Kind: KindQAReport, Dir: "qa", Ext: "md", Key: ArtifactKeyQA, Note: "qa report complete"},
	PhaseDeploy:            {From: PhaseDeploy, To: PhaseHumanReview, Kind: KindDeployReport, Dir: "deploy", Ext: "json", Key: ArtifactKeyDeploy, Note: "deploy report complete"},
}

// StepFor returns the automatic step that starts at phase p.
func StepFor(p Phase) (PhaseStep, bool) {
	s, ok := phaseSteps[p]
	return s, ok
}

// Render produces the artifact content for job at time now.
func (s PhaseStep) Render(job *Job, now time.Time) ([]byte, error) {
	switch s.Kind {
	case KindCustomerDiscovery:
		return marshalArtifact(customerArtifact(job, now))
	case KindProductSpec:
		return marshalArtifact(productArtifact(job, now))
	case KindDesignSpec:
		return marshalArtifact(designArtifact(job, now))
	case KindDeployReport:
		return marshalArtifact(deployArtifact(job, now))
	case KindBuildPlan:
		return WriteFrontMatter(ArtifactMeta{Kind: s.Kind, JobID: job.JobID, Code: job.Code, CreatedAt: now.UTC()}, []byte(buildPlan(job)))
	case KindQAReport:
		return WriteFrontMatter(ArtifactMeta{Kind: s.Kind, JobID: job.JobID, Code: job.Code, CreatedAt: now.UTC()}, []byte(qaReport()))
	default:
		return nil, fmt.Errorf("render artifact: unknown kind %q", s.Kind)
	}
}

func marshalArtifact(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal artifact: %w", err)
	}
	return append(data, '\n'), nil
}

type artifactHeader struct {
	CreatedAt time.Time    `json:"createdAt"`
	Kind      ArtifactKind `json:"kind"`
	JobID     string       `json:"jobId"`
}

type persona struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

type customerDiscovery struct {
	artifactHeader
	Persona    persona  `json:"persona"`
	BuySignal  string   `json:"buySignal"`
	Pains      []string `json:"pains"`
	Objections []string `json:"objections"`
}

func customerArtifact(job *Job, now time.Time) customerDiscovery {
	return customerDiscovery{
		artifactHeader: artifactHeader{Kind: KindCustomerDiscovery, JobID: job.JobID, CreatedAt: now.UTC()},
		Persona: persona{
			Title:   "Prospective customer",
			Summary: "A realistic buyer evaluating whether this product solves an urgent pain.",
		},
		Pains: []string{
			"Requests arrive via phone/text; missed calls create lost revenue.",
			"Manual follow-ups and calendar coordination are time-consuming.",
			"No-shows and reschedules waste time.",
		},
		Objections: []string{
			"Will it integrate with my existing calendar/CRM?",
			"I need this to work on mobile while I'm in the field.",
			"I don't want complicated setup.",
		},
		BuySignal: "If it reliably books jobs and reduces admin time, I would trial it.",
	}
}

type productSpec struct {
	artifactHeader
	ProductName        string   `json:"productName"`
	OneLiner           string   `json:"oneLiner"`
	MVPScope           []string `json:"mvpScope"`
	OutOfScope         []string `json:"outOfScope"`
	AcceptanceCriteria []string `json:"acceptanceCriteria"`
}

var productNameCleaner = regexp.MustCompile(`[^a-zA-Z0-9\s-]`)

func productArtifact(job *Job, now time.Time) productSpec {
	name := job.Title
	if name == "" {
		name = TitleFromIdea(job.Idea)
	}
	name = strings.TrimSpace(productNameCleaner.ReplaceAllString(name, ""))
	if name == "" {
		name = "New Product"
	}
	return productSpec{
		artifactHeader: artifactHeader{Kind: KindProductSpec, JobID: job.JobID, CreatedAt: now.UTC()},
		ProductName:    name + " MVP",
		OneLiner:       "Book and manage appointments fast, with automated reminders and intake.",
		MVPScope: []string{
			"Customer request form (service, date/time preferences, contact info)",
			"Admin view of requests with confirm/decline",
			"Calendar entry creation (internal stub)",
			"Reminder placeholder (logged, not sent)",
		},
		OutOfScope: []string{"Voice agent calls", "Payments", "Full CRM", "Complex routing/dispatch"},
		AcceptanceCriteria: []string{
			"A customer can submit a request in under 60 seconds.",
			"An admin can accept a request and see it in an appointments list.",
			"App deploys and loads successfully at a URL.",
		},
	}
}

type designSpec struct {
	artifactHeader
	InformationArchitecture []string `json:"informationArchitecture"`
	Components              []string `json:"components"`
	UXFlow                  []string `json:"uxFlow"`
}

func designArtifact(job *Job, now time.Time) designSpec {
	return designSpec{
		artifactHeader:          artifactHeader{Kind: KindDesignSpec, JobID: job.JobID, CreatedAt: now.UTC()},
		InformationArchitecture: []string{"Landing/Request page", "Admin Dashboard: Requests + Appointments", "Request detail view"},
		Components:              []string{"RequestForm", "RequestsTable", "AppointmentsList", "StatusBadge"},
		UXFlow: []string{
			"Customer submits request → sees confirmation page",
			"Admin reviews request → accepts → appointment appears",
			"Admin can mark complete/cancel",
		},
	}
}

type deployReport struct {
	artifactHeader
	URL    *string `json:"url"`
	Status string  `json:"status"`
	Note   string  `json:"note"`
}

func deployArtifact(job *Job, now time.Time) deployReport {
	return deployReport{
		artifactHeader: artifactHeader{Kind: KindDeployReport, JobID: job.JobID, CreatedAt: now.UTC()},
		Status:         "PENDING_REAL_DEPLOY",
		Note:           "Runner does not perform deploy validation yet.",
	}
}

func buildPlan(job *Job) string {
	return fmt.Sprintf(`# Build Plan

Job: %s
Code: %s

## Implementation steps
1) Create request form page
2) Create admin dashboard page
3) Wire API routes for create/list/update
4) Add basic styling
`, job.JobID, job.Code)
}

func qaReport() string {
	return `# QA Report

- Request form submits
- Admin sees request
- Accept moves request to appointments

## Issues
- Notifications not implemented
- Calendar integration stub
`
}

// ArtifactMeta is the YAML frontmatter of markdown artifacts.
type ArtifactMeta struct {
	CreatedAt time.Time    `yaml:"createdAt"`
	Kind      ArtifactKind `yaml:"kind"`
	JobID     string       `yaml:"jobId"`
	Code      string       `yaml:"code,omitempty"`
}

// WriteFrontMatter renders meta and body with YAML fences.
func WriteFrontMatter(meta ArtifactMeta, body []byte) ([]byte, error) {
	data, err := yaml.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encode frontmatter: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(bytes.TrimRight(data, "\n"))
	buf.WriteString("\n---\n\n")
	buf.Write(body)
	return buf.Bytes(), nil
}

// ParseFrontMatter splits a markdown artifact into its metadata and body.
func ParseFrontMatter(content []byte) (ArtifactMeta, []byte, error) {
	if !bytes.HasPrefix(content, []byte("---\n")) {
		return ArtifactMeta{}, nil, fmt.Errorf("parse frontmatter: missing opening ---")
	}
	head, body, ok := bytes.Cut(content[4:], []byte("\n---\n"))
	if !ok {
		return ArtifactMeta{}, nil, fmt.Errorf("parse frontmatter: missing closing ---")
	}
	var meta ArtifactMeta
	if err := yaml.Unmarshal(head, &meta); err != nil {
		return ArtifactMeta{}, nil, fmt.Errorf("parse frontmatter: %w", err)
	}
	return meta, bytes.TrimLeft(body, "\n"), nil
}
