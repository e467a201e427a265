package gherkin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBasicFeature(t *testing.T) {
	content := `Feature: Login
  As a user I want to log in

  Scenario: Successful login
    Given I am on the login page
    When I enter valid credentials
    Then I see the dashboard

  Scenario: Failed login
    Given I am on the login page
    When I enter bad credentials
    Then I see an error
`
	f := Parse("login.feature", []byte(content))

	assert.Equal(t, "Login", f.Name)
	assert.Equal(t, 1, f.Line)
	assert.Equal(t, "login.feature", f.SourcePath)
	require.Len(t, f.Scenarios, 2)
	assert.Equal(t, "Successful login", f.Scenarios[0].Name)
	assert.Equal(t, 4, f.Scenarios[0].Line)
	assert.Len(t, f.Steps, 6)
	assert.Equal(t, "Given", f.Steps[0].Keyword)
	assert.Equal(t, "I am on the login page", f.Steps[0].Text)
	assert.Equal(t, 5, f.Steps[0].Line)
}

func TestParseOutlineWithExamples(t *testing.T) {
	content := `Feature: Checkout

  Scenario Outline: Buy items
    Given I have <count> items
    When I check out
    Then I pay <total>

    Examples:
      | count | total |
      | 1     | 10    |
      | 2     | 20    |
      | 3     | 30    |
`
	f := Parse("checkout.feature", []byte(content))

	require.Len(t, f.Outlines, 1)
	outline := f.Outlines[0]
	assert.Equal(t, "Buy items", outline.Name)
	require.Len(t, outline.Examples, 1)
	// Header row does not count as data
	assert.Equal(t, 3, outline.Examples[0].RowCount)
	assert.Equal(t, 3, outline.ExampleRows())
	assert.Len(t, f.Steps, 3)
}

func TestParseOutlineMultipleExampleBlocks(t *testing.T) {
	content := `Feature: F

  Scenario Outline: O
    Given step <x>

    Examples:
      | x |
      | 1 |
      | 2 |

    Scenarios:
      | x |
      | 3 |
`
	f := Parse("f.feature", []byte(content))

	require.Len(t, f.Outlines, 1)
	require.Len(t, f.Outlines[0].Examples, 2)
	assert.Equal(t, 2, f.Outlines[0].Examples[0].RowCount)
	assert.Equal(t, 1, f.Outlines[0].Examples[1].RowCount)
	assert.Equal(t, 3, f.Outlines[0].ExampleRows())
}

func TestParseOutlineWithoutExamples(t *testing.T) {
	content := `Feature: F

  Scenario Outline: Draft outline
    Given a step
`
	f := Parse("f.feature", []byte(content))

	require.Len(t, f.Outlines, 1)
	assert.Empty(t, f.Outlines[0].Examples)
	assert.Equal(t, 0, f.Outlines[0].ExampleRows())
}

func TestParseDocStringsSkipped(t *testing.T) {
	content := `Feature: F

  Scenario: S
    Given a payload
      """
      Given this line is payload, not a step
      """
    Then I submit it
`
	f := Parse("f.feature", []byte(content))

	require.Len(t, f.Steps, 2)
	assert.Equal(t, "a payload", f.Steps[0].Text)
	assert.Equal(t, "I submit it", f.Steps[1].Text)
}

func TestParseDataTableNotCountedAsExamples(t *testing.T) {
	content := `Feature: F

  Scenario: S
    Given these users
      | name  |
      | alice |
      | bob   |
`
	f := Parse("f.feature", []byte(content))

	assert.Empty(t, f.Outlines)
	assert.Len(t, f.Steps, 1)
}

func TestParseTagsAndComments(t *testing.T) {
	content := `@smoke
Feature: F
  # a comment

  @wip @slow
  Scenario: S
    Given a step
`
	f := Parse("f.feature", []byte(content))

	assert.Equal(t, "F", f.Name)
	require.Len(t, f.Scenarios, 1)
	assert.Len(t, f.Steps, 1)
}

func TestParseConjunctionKeywords(t *testing.T) {
	content := `Feature: F

  Scenario: S
    Given one
    And two
    But three
    * four
`
	f := Parse("f.feature", []byte(content))

	require.Len(t, f.Steps, 4)
	assert.Equal(t, "And", f.Steps[1].Keyword)
	assert.Equal(t, "But", f.Steps[2].Keyword)
	assert.Equal(t, "*", f.Steps[3].Keyword)
	assert.Equal(t, "four", f.Steps[3].Text)
}

func TestParseMalformedInputNeverPanics(t *testing.T) {
	inputs := []string{
		"",
		"|||",
		"Examples:\n| a |\n| 1 |",
		"Scenario Outline:",
		"\"\"\"\nunclosed doc string\nGiven a step",
		"Given a step before any Feature line",
	}
	for _, input := range inputs {
		f := Parse("x.feature", []byte(input))
		assert.NotNil(t, f)
	}
}

func TestParseStepAfterExamplesEndsTable(t *testing.T) {
	content := `Feature: F

  Scenario Outline: O
    Given step <x>

    Examples:
      | x |
      | 1 |

  Scenario: S
    Given these rows
      | a |
      | b |
`
	f := Parse("f.feature", []byte(content))

	require.Len(t, f.Outlines, 1)
	// Only the outline's table row counts; the scenario data table does not
	assert.Equal(t, 1, f.Outlines[0].ExampleRows())
	require.Len(t, f.Scenarios, 1)
}
