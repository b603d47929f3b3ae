package prompt

import (
	"encoding/json"
	"fmt"

	"github.com/auditops/envsegd/internal/domain/inventory"
)

// SystemPrompt provides the analyst persona for every batch call.
func SystemPrompt() string {
	return "You are an expert IT environment analyst specializing in compliance and environment segregation validation. " +
		"Your task is to analyze system environments and identify deviations from the required environment setup."
}

// BatchPrompt renders the classification instructions around one batch of
// system summaries. The output contract is strict: a bare JSON array with
// exactly three fields per system, no extra text.
func BatchPrompt(spec inventory.Spec, batch []inventory.SystemSummary) (string, error) {
	data, err := json.Marshal(batch)
	if err != nil {
		return "", fmt.Errorf("marshal batch: %w", err)
	}

	return fmt.Sprintf(`You are an expert in IT environment segregation analysis. I need you to analyze the following system environment data:

%s

TASK:
For each System Name, check ONLY if it has all three required environments: DEV, TEST, and PROD.

INSTRUCTIONS:
1. For each system, look at the boolean fields 'Has DEV', 'Has TEST', and 'Has PROD'.
2. If all three are true, mark the system as "OK" with reason "DEV, TEST, PROD environments are present".
3. If any are false, mark it as "Deviation" with the reason "No [ENVIRONMENT] environment available".
4. If multiple environments are missing, list all missing environments in the reason.

REQUIRED OUTPUT FORMAT:
A JSON array containing one object for each System Name, with these exact fields:
- System_Name: The system name
- %[2]s: Either "Deviation" or "OK"
- Reason: The reason for deviation, or "DEV, TEST, PROD environments are present" if OK

EXAMPLES:
1. If a system has all environments (Has DEV=true, Has TEST=true, Has PROD=true):
   {"System_Name": "Workday Payroll", "%[2]s": "OK", "Reason": "DEV, TEST, PROD environments are present"}

2. If a system is missing TEST (Has DEV=true, Has TEST=false, Has PROD=true):
   {"System_Name": "SAP FI", "%[2]s": "Deviation", "Reason": "No TEST environment available"}

3. If a system is missing multiple environments (Has DEV=false, Has TEST=false, Has PROD=true):
   {"System_Name": "Oracle EBS AP", "%[2]s": "Deviation", "Reason": "No DEV and TEST environments available"}

CRITICAL:
- Focus ONLY on the presence of environment types (DEV, TEST, PROD)
- The 'Has DEV', 'Has TEST', and 'Has PROD' flags indicate if that environment type exists
- Analyze EVERY System Name in the input data
- Return ONLY the JSON array with no additional text`, string(data), spec.VerdictField), nil
}
