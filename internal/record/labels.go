package record

type Status string

const (
	StatusToSend        Status = "to_send"
	StatusSent          Status = "sent"
	StatusFollowUp      Status = "follow_up"
	StatusRejected      Status = "rejected"
	StatusInterview     Status = "interview"
	StatusOfferReceived Status = "offer_received"
)

var Statuses = []Status{StatusToSend, StatusSent, StatusFollowUp, StatusRejected, StatusInterview, StatusOfferReceived}

var StatusLabels = map[Status]string{
	StatusToSend:        "À envoyer",
	StatusSent:          "Envoyée",
	StatusFollowUp:      "Relance",
	StatusRejected:      "Refus",
	StatusInterview:     "Entretien",
	StatusOfferReceived: "Offre reçue",
}

func (s Status) Valid() bool {
	_, ok := StatusLabels[s]
	return ok
}

// Label falls back to the raw value so unknown statuses still display.
func (s Status) Label() string { return labelOr(StatusLabels, s) }

type ContractType string

const (
	ContractCDI            ContractType = "cdi"
	ContractCDD            ContractType = "cdd"
	ContractFreelance      ContractType = "freelance"
	ContractInternship     ContractType = "internship"
	ContractTemporary      ContractType = "temporary"
	ContractApprenticeship ContractType = "apprenticeship"
)

var ContractTypes = []ContractType{ContractCDI, ContractCDD, ContractFreelance, ContractInternship, ContractTemporary, ContractApprenticeship}

var ContractTypeLabels = map[ContractType]string{
	ContractCDI:            "CDI",
	ContractCDD:            "CDD",
	ContractFreelance:      "Freelance",
	ContractInternship:     "Stage",
	ContractTemporary:      "Intérim",
	ContractApprenticeship: "Apprentissage",
}

func (c ContractType) Valid() bool {
	_, ok := ContractTypeLabels[c]
	return ok
}

func (c ContractType) Label() string { return labelOr(ContractTypeLabels, c) }

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

var PriorityLabels = map[Priority]string{
	PriorityLow:    "Basse",
	PriorityMedium: "Moyenne",
	PriorityHigh:   "Haute",
}

func (p Priority) Valid() bool {
	_, ok := PriorityLabels[p]
	return ok
}

func (p Priority) Label() string { return labelOr(PriorityLabels, p) }

type Remote string

const (
	RemoteFull    Remote = "full"
	RemoteHybrid  Remote = "hybrid"
	RemoteNone    Remote = "none"
	RemoteUnknown Remote = "unknown"
)

var Remotes = []Remote{RemoteFull, RemoteHybrid, RemoteNone, RemoteUnknown}

var RemoteLabels = map[Remote]string{
	RemoteFull:    "Full remote",
	RemoteHybrid:  "Hybride",
	RemoteNone:    "Présentiel",
	RemoteUnknown: "Non précisé",
}

func (r Remote) Valid() bool {
	_, ok := RemoteLabels[r]
	return ok
}

func (r Remote) Label() string { return labelOr(RemoteLabels, r) }

type Source string

const (
	SourceManual    Source = "manual"
	SourceHelloWork Source = "hellowork"
	SourceImport    Source = "import"
	SourceLinkedIn  Source = "linkedin"
	SourceIndeed    Source = "indeed"
	SourceWTTJ      Source = "wttj"
	SourceOther     Source = "other"
)

var Sources = []Source{SourceManual, SourceHelloWork, SourceImport, SourceLinkedIn, SourceIndeed, SourceWTTJ, SourceOther}

var SourceLabels = map[Source]string{
	SourceManual:    "Ajout manuel",
	SourceHelloWork: "HelloWork",
	SourceImport:    "Import",
	SourceLinkedIn:  "LinkedIn",
	SourceIndeed:    "Indeed",
	SourceWTTJ:      "Welcome to the Jungle",
	SourceOther:     "Autre",
}

func (s Source) Valid() bool {
	_, ok := SourceLabels[s]
	return ok
}

func (s Source) Label() string { return labelOr(SourceLabels, s) }

// TechStackLabels lists the tags offered by the form. Records may carry
// other tags; they are kept as-is.
var TechStackLabels = map[string]string{
	"javascript": "JavaScript",
	"typescript": "TypeScript",
	"python":     "Python",
	"java":       "Java",
	"csharp":     "C#",
	"cplusplus":  "C++",
	"ruby":       "Ruby",
	"go":         "Go",
	"php":        "PHP",
}

func TechLabel(tag string) string { return labelOr(TechStackLabels, tag) }

func labelOr[K ~string](labels map[K]string, key K) string {
	if label, ok := labels[key]; ok {
		return label
	}
	return string(key)
}
