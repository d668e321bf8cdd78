// Package junit parses JUnit XML reports into the document shapes the
// synchronizers index.
package junit

import (
	"encoding/xml"
	"errors"
	"io"
	"strconv"
	"strings"
)

// TestSuite is one parsed <testsuite> element with aggregated counters.
type TestSuite struct {
	ID         int        `json:"id"`
	Name       string     `json:"name"`
	Tests      int        `json:"tests"`
	Failures   int        `json:"failures"`
	Errors     int        `json:"errors"`
	Skipped    int        `json:"skipped"`
	Success    int        `json:"success"`
	Time       float64    `json:"time"`
	TestCases  []TestCase `json:"testcases"`
	Properties []Property `json:"properties"`
}

// TestCase is one parsed <testcase> element.
type TestCase struct {
	Name      string  `json:"name"`
	Classname string  `json:"classname"`
	Time      float64 `json:"time"`
	Action    string  `json:"action"`
	Message   string  `json:"message,omitempty"`
	Type      string  `json:"type,omitempty"`
}

// Property is one <property> entry of a test suite.
type Property struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type xmlOutcome struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
}

type xmlTestCase struct {
	Name      string      `xml:"name,attr"`
	Classname string      `xml:"classname,attr"`
	Time      string      `xml:"time,attr"`
	Skipped   *xmlOutcome `xml:"skipped"`
	Error     *xmlOutcome `xml:"error"`
	Failure   *xmlOutcome `xml:"failure"`
}

type xmlProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type xmlTestSuite struct {
	Name       string        `xml:"name,attr"`
	TestCases  []xmlTestCase `xml:"testcase"`
	Properties []xmlProperty `xml:"properties>property"`
}

// Parse reads a JUnit report and returns its test suites. A document with
// zero elements (an empty file) yields an empty slice, not an error; any
// other malformed XML is an error.
func Parse(r io.Reader) ([]TestSuite, error) {
	decoder := xml.NewDecoder(r)
	suites := []TestSuite{}

	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			return suites, nil
		}
		if err != nil {
			// No elements at all means an empty report, not a broken one.
			if len(suites) == 0 && errors.Is(err, io.ErrUnexpectedEOF) {
				return suites, nil
			}
			return nil, err
		}

		start, ok := token.(xml.StartElement)
		if !ok || start.Name.Local != "testsuite" {
			continue
		}

		var raw xmlTestSuite
		if err := decoder.DecodeElement(&raw, &start); err != nil {
			return nil, err
		}
		suites = append(suites, convertSuite(raw, len(suites)))
	}
}

func convertSuite(raw xmlTestSuite, id int) TestSuite {
	suite := TestSuite{
		ID:         id,
		Name:       raw.Name,
		TestCases:  []TestCase{},
		Properties: []Property{},
	}
	for _, p := range raw.Properties {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			continue
		}
		suite.Properties = append(suite.Properties, Property{Name: name, Value: p.Value})
	}
	for _, c := range raw.TestCases {
		testcase := convertCase(c)
		suite.Tests++
		suite.Time += testcase.Time
		switch testcase.Action {
		case "skipped":
			suite.Skipped++
		case "error":
			suite.Errors++
		case "failure":
			suite.Failures++
		default:
			suite.Success++
		}
		suite.TestCases = append(suite.TestCases, testcase)
	}
	return suite
}

func convertCase(raw xmlTestCase) TestCase {
	testcase := TestCase{
		Name:      raw.Name,
		Classname: raw.Classname,
		Time:      parseTime(raw.Time),
		Action:    "success",
	}
	switch {
	case raw.Skipped != nil:
		testcase.Action = "skipped"
		testcase.Message = raw.Skipped.Message
		testcase.Type = raw.Skipped.Type
	case raw.Error != nil:
		testcase.Action = "error"
		testcase.Message = raw.Error.Message
		testcase.Type = raw.Error.Type
	case raw.Failure != nil:
		testcase.Action = "failure"
		testcase.Message = raw.Failure.Message
		testcase.Type = raw.Failure.Type
	}
	return testcase
}

func parseTime(value string) float64 {
	t, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0.0
	}
	return t
}

// FlattenCaseTimes maps "classname/name" keys to testcase durations in
// seconds, the flat shape the junit comparison index stores. Commas in keys
// are replaced with underscores; a missing or unparsable duration becomes -1.
// On malformed XML the suites parsed so far are still returned alongside the
// error.
func FlattenCaseTimes(r io.Reader) (map[string]float64, error) {
	res := map[string]float64{}
	decoder := xml.NewDecoder(r)

	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			return res, nil
		}
		if err != nil {
			return res, err
		}

		start, ok := token.(xml.StartElement)
		if !ok || start.Name.Local != "testsuite" {
			continue
		}

		var raw xmlTestSuite
		if err := decoder.DecodeElement(&raw, &start); err != nil {
			return res, err
		}
		for _, c := range raw.TestCases {
			if c.Classname == "" || c.Name == "" {
				continue
			}
			key := strings.TrimSpace(c.Classname + "/" + c.Name)
			key = strings.ReplaceAll(key, ",", "_")
			res[key] = caseTimeOrSentinel(c.Time)
		}
	}
}

func caseTimeOrSentinel(value string) float64 {
	if strings.TrimSpace(value) == "" {
		return -1.0
	}
	t, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return -1.0
	}
	return t
}
