package inventory

import "fmt"

// Kind enum untuk tipe entity yang diaudit
type Kind string

const (
	KindEnvironment Kind = "env"
	KindDatabase    Kind = "db"
	KindServer      Kind = "server"
	KindURL         Kind = "url"
	KindCloud       Kind = "cloud"
)

// Spec describes the spreadsheet contract of one entity kind: which sheet
// holds its inventory, which columns must exist, and how its output files
// and verdict field are named.
type Spec struct {
	Kind            Kind
	DataSheet       string
	KeyColumn       string
	EnvColumn       string
	RequiredColumns []string
	// VerdictField is the JSON field the analysis service fills with the
	// OK/Deviation verdict for this kind.
	VerdictField  string
	FileSuffix    string
	AnalysisSheet string
	ExtractorName string
	AnalyzerName  string
}

var specs = map[Kind]Spec{
	KindEnvironment: {
		Kind:            KindEnvironment,
		DataSheet:       "Environment_Register",
		KeyColumn:       "System Name",
		EnvColumn:       "Environment Type",
		RequiredColumns: []string{"System Name", "Environment Type", "Env-ID"},
		VerdictField:    "Environment_DTAP",
		FileSuffix:      "Environment_Data",
		AnalysisSheet:   "Environment_Deviation_Analysis",
		ExtractorName:   "Environment Data Extractor",
		AnalyzerName:    "EnvironmentDeviationAnalyzer",
	},
	KindDatabase: {
		Kind:            KindDatabase,
		DataSheet:       "Database_Instance_Mapping",
		KeyColumn:       "System Name",
		EnvColumn:       "Environment Type",
		RequiredColumns: []string{"System Name", "Environment Type", "Database Instance ID", "Database Name"},
		VerdictField:    "DB_Config",
		FileSuffix:      "Database_Data",
		AnalysisSheet:   "Database_Deviation_Analysis",
		ExtractorName:   "Database Data Extractor",
		AnalyzerName:    "DatabaseDeviationAnalyzer",
	},
	KindServer: {
		Kind:            KindServer,
		DataSheet:       "Server_Instance_Mapping",
		KeyColumn:       "System Name",
		EnvColumn:       "Environment Type",
		RequiredColumns: []string{"System Name", "Environment Type", "Server/Instance ID", "Hostname"},
		VerdictField:    "Server_Config",
		FileSuffix:      "Server_Data",
		AnalysisSheet:   "Server_Deviation_Analysis",
		ExtractorName:   "Server Data Extractor",
		AnalyzerName:    "ServerDeviationAnalyzer",
	},
	KindURL: {
		Kind:            KindURL,
		DataSheet:       "URL_Endpoint_Mapping",
		KeyColumn:       "System Name",
		EnvColumn:       "Environment Type",
		RequiredColumns: []string{"System Name", "Environment Type", "URL"},
		VerdictField:    "URL_Config",
		FileSuffix:      "URL_Data",
		AnalysisSheet:   "URL_Deviation_Analysis",
		ExtractorName:   "URL Endpoint Extractor",
		AnalyzerName:    "URLEndpointDeviationAnalyzer",
	},
	KindCloud: {
		Kind:            KindCloud,
		DataSheet:       "Cloud_Resource_Inventory",
		KeyColumn:       "System Name",
		EnvColumn:       "Environment Type",
		RequiredColumns: []string{"System Name", "Environment Type", "Subscription ID", "Resource Group Name"},
		VerdictField:    "Cloud_Config",
		FileSuffix:      "Cloud_Resource_Data",
		AnalysisSheet:   "Cloud_Resource_Deviation_Analysis",
		ExtractorName:   "Cloud Resource Extractor",
		AnalyzerName:    "CloudResourceDeviationAnalyzer",
	},
}

// SpecFor resolves the spreadsheet contract for a kind.
func SpecFor(k Kind) (Spec, error) {
	s, ok := specs[k]
	if !ok {
		return Spec{}, fmt.Errorf("unknown entity kind: %q", k)
	}
	return s, nil
}

// AllKinds returns every supported kind in workflow order.
func AllKinds() []Kind {
	return []Kind{KindEnvironment, KindDatabase, KindServer, KindURL, KindCloud}
}

// ParseKind maps a CLI process selector to a kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindEnvironment, KindDatabase, KindServer, KindURL, KindCloud:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown process: %q", s)
}
