package logging

import "strings"

// FormatSubject builds the survey/response subject string shown in
// console line headers and by log followers.
func FormatSubject(surveyID, responseID string) string {
	surveyID = strings.TrimSpace(surveyID)
	responseID = strings.TrimSpace(responseID)
	switch {
	case surveyID != "" && responseID != "":
		return surveyID + " · " + responseID
	case surveyID != "":
		return surveyID
	case responseID != "":
		return responseID
	default:
		return ""
	}
}
