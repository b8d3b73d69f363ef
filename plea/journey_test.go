package plea

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencourts/pleaflow-go/contracts"
	"github.com/opencourts/pleaflow-go/court"
	"github.com/opencourts/pleaflow-go/forms"
	"github.com/opencourts/pleaflow-go/notify"
)

func testRegister() *court.Register {
	return court.NewRegister(
		&court.Court{
			Code:        "B01",
			Name:        "Bedfordshire Magistrates' Court",
			Email:       "bedfordshire@example.test",
			Regions:     []string{"06"},
			NoticeTypes: court.NoticeBoth,
		},
		&court.Court{
			Code:        "L01",
			Name:        "Lavender Hill Magistrates' Court",
			Email:       "lavenderhill@example.test",
			Regions:     []string{"20"},
			NoticeTypes: court.NoticeSJPNotice,
		},
	)
}

// journey drives one citizen's pass through the graph, carrying the session
// data between requests the way the web layer does.
type journey struct {
	t         *testing.T
	graph     *forms.Graph
	data      contracts.JourneyData
	messages  []contracts.Message
	submitted []*notify.Submission
	submitErr error
}

func newJourney(t *testing.T) *journey {
	t.Helper()
	j := &journey{t: t, data: contracts.JourneyData{}}
	submitter := notify.SubmitterFunc(func(ctx context.Context, sub *notify.Submission) error {
		if j.submitErr != nil {
			return j.submitErr
		}
		j.submitted = append(j.submitted, sub)
		return nil
	})
	j.graph = NewGraph(testRegister(), submitter)
	return j
}

func (j *journey) engine(stage string, index int) *forms.Engine {
	j.t.Helper()
	engine, err := forms.New(j.graph, j.data, stage, index)
	require.NoError(j.t, err)
	return engine
}

func (j *journey) load(stage string) contracts.Outcome {
	j.t.Helper()
	outcome, err := j.engine(stage, -1).Load(nil)
	require.NoError(j.t, err)
	return outcome
}

func (j *journey) saveAt(stage string, index int, kv map[string]string) contracts.Outcome {
	j.t.Helper()
	raw := make(map[string][]string, len(kv))
	for k, v := range kv {
		raw[k] = []string{v}
	}
	engine := j.engine(stage, index)
	outcome, err := engine.Save(context.Background(), raw, nil, "")
	require.NoError(j.t, err)
	engine.ProcessMessages(contracts.MessageSinkFunc(func(severity contracts.Severity, text string) {
		j.messages = append(j.messages, contracts.Message{Severity: severity, Text: text})
	}))
	return outcome
}

func (j *journey) save(stage string, kv map[string]string) contracts.Outcome {
	j.t.Helper()
	return j.saveAt(stage, -1, kv)
}

// startCase completes the identification stages up to and including the case
// stage, leaving the journey at the details stage for the chosen party.
func (j *journey) startCase(madeBy string, charges int) contracts.Outcome {
	j.t.Helper()
	outcome := j.save(StageURN, map[string]string{"urn": "06/AA/1234567/20"})
	require.Equal(j.t, StageAuth, outcome.Stage)

	outcome = j.save(StageAuth, map[string]string{
		"postcode":      "AB1 2CD",
		"date_of_birth": "1980-06-15",
	})
	require.Equal(j.t, StageNoticeType, outcome.Stage)

	outcome = j.save(StageNoticeType, map[string]string{"notice_type": court.NoticeCharge})
	require.Equal(j.t, StageCase, outcome.Stage)

	return j.save(StageCase, map[string]string{
		"date_of_hearing":   "2026-09-14",
		"number_of_charges": strconv.Itoa(charges),
		"plea_made_by":      madeBy,
	})
}

func (j *journey) saveYourDetails() contracts.Outcome {
	j.t.Helper()
	return j.save(StageYourDetails, map[string]string{
		"first_name":     "Sam",
		"last_name":      "Price",
		"contact_number": "07700900123",
	})
}

func (j *journey) savePlea(index int, plea string) contracts.Outcome {
	j.t.Helper()
	kv := map[string]string{"guilty": plea}
	if plea == PleaNotGuilty {
		kv["not_guilty_because"] = "I was not driving the vehicle"
	}
	return j.saveAt(StagePlea, index, kv)
}

// saveEmployedFinances walks both screens of the split finances stage.
func (j *journey) saveEmployedFinances(hardship string) contracts.Outcome {
	j.t.Helper()
	outcome := j.save(StageYourFinances, map[string]string{"you_are": "Employed"})
	require.Equal(j.t, contracts.OutcomeRender, outcome.Kind)

	return j.save(StageYourFinances, map[string]string{
		contracts.KeySplitForm:   contracts.SplitFormLastStep,
		"you_are":                "Employed",
		"employed_pay_period":    "Monthly",
		"employed_take_home_pay": "1850.00",
		"employed_hardship":      hardship,
	})
}

func TestJourneyEntry(t *testing.T) {
	t.Run("deep link with no session redirects to the start", func(t *testing.T) {
		j := newJourney(t)
		outcome := j.load(StageCase)

		assert.Equal(t, contracts.OutcomeRedirect, outcome.Kind)
		assert.Equal(t, StageURN, outcome.Stage)
	})

	t.Run("deep link to the confirmation with no session goes home", func(t *testing.T) {
		j := newJourney(t)
		outcome := j.load(StageComplete)

		assert.Equal(t, contracts.OutcomeHome, outcome.Kind)
	})

	t.Run("matched court is recorded in the journey bag", func(t *testing.T) {
		j := newJourney(t)
		j.save(StageURN, map[string]string{"urn": "06/AA/1234567/20"})

		journeyBag := j.data.Bag(contracts.JourneyBag)
		assert.Equal(t, "B01", journeyBag["court_code"])
		assert.Equal(t, "Bedfordshire Magistrates' Court", journeyBag["court_name"])
	})

	t.Run("unknown region fails URN validation", func(t *testing.T) {
		j := newJourney(t)
		outcome := j.save(StageURN, map[string]string{"urn": "99/AA/1234567/20"})

		assert.Equal(t, contracts.OutcomeRender, outcome.Kind)
		assert.NotEmpty(t, outcome.Context["errors"])
		assert.False(t, j.data.Bag(StageURN).Complete())
	})

	t.Run("single-notice court answers the notice question itself", func(t *testing.T) {
		j := newJourney(t)
		outcome := j.save(StageURN, map[string]string{"urn": "20/BB/0000042/20"})
		require.Equal(t, StageAuth, outcome.Stage)

		assert.True(t, j.data.Bag(StageNoticeType).Skipped())
		assert.Equal(t, court.NoticeSJPNotice, j.data.Bag(StageNoticeType)["notice_type"])

		outcome = j.save(StageAuth, map[string]string{
			"postcode":      "AB1 2CD",
			"date_of_birth": "1980-06-15",
		})
		assert.Equal(t, StageCase, outcome.Stage)
	})
}

func TestJourneyPartyRouting(t *testing.T) {
	t.Run("a defendant goes to personal details", func(t *testing.T) {
		j := newJourney(t)
		outcome := j.startCase(MadeByDefendant, 1)

		assert.Equal(t, StageYourDetails, outcome.Stage)
		assert.True(t, j.data.Bag(StageCompanyDetails).Skipped())
	})

	t.Run("a company representative goes to company details", func(t *testing.T) {
		j := newJourney(t)
		outcome := j.startCase(MadeByCompany, 1)

		assert.Equal(t, StageCompanyDetails, outcome.Stage)
		assert.True(t, j.data.Bag(StageYourDetails).Skipped())
	})

	t.Run("details lead to the first charge", func(t *testing.T) {
		j := newJourney(t)
		j.startCase(MadeByDefendant, 2)

		outcome := j.saveYourDetails()
		assert.Equal(t, StagePlea, outcome.Stage)
		assert.Equal(t, 0, outcome.Index)
	})
}

func TestJourneyPleaMix(t *testing.T) {
	t.Run("defendant pleading guilty to everything declares finances", func(t *testing.T) {
		j := newJourney(t)
		j.startCase(MadeByDefendant, 2)
		j.saveYourDetails()

		outcome := j.savePlea(0, PleaGuilty)
		require.Equal(t, StagePlea, outcome.Stage)
		require.Equal(t, 1, outcome.Index)

		outcome = j.savePlea(1, PleaGuilty)
		assert.Equal(t, StageYourFinances, outcome.Stage)
		assert.True(t, j.data.Bag(StageDefence).Skipped())
		assert.True(t, j.data.Bag(StageCompanyFinances).Skipped())
	})

	t.Run("defendant disputing everything prepares a defence instead", func(t *testing.T) {
		j := newJourney(t)
		j.startCase(MadeByDefendant, 1)
		j.saveYourDetails()

		outcome := j.savePlea(0, PleaNotGuilty)
		assert.Equal(t, StageDefence, outcome.Stage)
		for _, stage := range []string{StageYourFinances, StageHardship, StageHouseholdExpenses, StageOtherExpenses} {
			assert.True(t, j.data.Bag(stage).Skipped(), stage)
		}

		outcome = j.save(StageDefence, map[string]string{"call_witnesses": "no"})
		assert.Equal(t, StageReview, outcome.Stage)
	})

	t.Run("mixed pleas need both a defence and finances", func(t *testing.T) {
		j := newJourney(t)
		j.startCase(MadeByDefendant, 2)
		j.saveYourDetails()

		j.savePlea(0, PleaGuilty)
		outcome := j.savePlea(1, PleaNotGuilty)
		assert.Equal(t, StageDefence, outcome.Stage)
		assert.False(t, j.data.Bag(StageYourFinances).Skipped())

		outcome = j.save(StageDefence, map[string]string{"call_witnesses": "no"})
		assert.Equal(t, StageYourFinances, outcome.Stage)
	})

	t.Run("company pleading guilty to everything goes straight to review", func(t *testing.T) {
		j := newJourney(t)
		j.startCase(MadeByCompany, 1)
		j.save(StageCompanyDetails, map[string]string{
			"company_name":        "Acme Haulage Ltd",
			"first_name":          "Dana",
			"last_name":           "Webb",
			"position_in_company": "Director",
			"contact_number":      "07700900456",
		})

		outcome := j.savePlea(0, PleaGuilty)
		assert.Equal(t, StageReview, outcome.Stage)
		assert.True(t, j.data.Bag(StageDefence).Skipped())
		assert.True(t, j.data.Bag(StageCompanyFinances).Skipped())
		assert.True(t, j.data.Bag(StageYourFinances).Skipped())

		outcome = j.load(StageReview)
		assert.Equal(t, contracts.OutcomeRender, outcome.Kind)
	})

	t.Run("company disputing everything declares company finances", func(t *testing.T) {
		j := newJourney(t)
		j.startCase(MadeByCompany, 1)
		j.save(StageCompanyDetails, map[string]string{
			"company_name":        "Acme Haulage Ltd",
			"first_name":          "Dana",
			"last_name":           "Webb",
			"position_in_company": "Director",
			"contact_number":      "07700900456",
		})

		outcome := j.savePlea(0, PleaNotGuilty)
		assert.Equal(t, StageDefence, outcome.Stage)
		assert.True(t, j.data.Bag(StageCompanyFinances).Skipped())
	})
}

func TestJourneyChargeResize(t *testing.T) {
	t.Run("reducing the charge count keeps the earlier pleas", func(t *testing.T) {
		j := newJourney(t)
		j.startCase(MadeByDefendant, 3)
		j.saveYourDetails()
		j.savePlea(0, PleaGuilty)
		j.savePlea(1, PleaNotGuilty)

		// The citizen goes back and corrects the charge count.
		outcome := j.save(StageCase, map[string]string{
			"date_of_hearing":   "2026-09-14",
			"number_of_charges": "2",
			"plea_made_by":      MadeByDefendant,
		})
		require.Equal(t, StageYourDetails, outcome.Stage)

		outcome = j.load(StagePlea)
		assert.Equal(t, 2, outcome.Context["count"])
		renderData := outcome.Context["data"].(map[string]any)
		assert.Equal(t, PleaGuilty, renderData["guilty"])

		// Resubmitting any charge persists the truncated list.
		outcome = j.savePlea(0, PleaGuilty)
		require.Equal(t, 1, outcome.Index)

		items := j.data.Bag(StagePlea).ItemList(ListKeyPleas)
		require.Len(t, items, 2)
		assert.Equal(t, PleaGuilty, items[0]["guilty"])
		assert.Equal(t, PleaNotGuilty, items[1]["guilty"])
	})

	t.Run("raising the charge count appends blank charges", func(t *testing.T) {
		j := newJourney(t)
		j.startCase(MadeByDefendant, 1)
		j.saveYourDetails()
		j.savePlea(0, PleaGuilty)

		j.save(StageCase, map[string]string{
			"date_of_hearing":   "2026-09-14",
			"number_of_charges": "2",
			"plea_made_by":      MadeByDefendant,
		})

		outcome := j.load(StagePlea)
		assert.Equal(t, 2, outcome.Context["count"])

		outcome = j.savePlea(1, PleaGuilty)
		require.NotEqual(t, StagePlea, outcome.Stage)

		items := j.data.Bag(StagePlea).ItemList(ListKeyPleas)
		require.Len(t, items, 2)
		assert.Equal(t, PleaGuilty, items[0]["guilty"])
		assert.True(t, items[0].Complete())
		assert.True(t, items[1].Complete())
	})
}

func TestJourneyFinances(t *testing.T) {
	t.Run("no hardship skips the expense stages", func(t *testing.T) {
		j := newJourney(t)
		j.startCase(MadeByDefendant, 1)
		j.saveYourDetails()
		j.savePlea(0, PleaGuilty)

		outcome := j.saveEmployedFinances("no")
		assert.Equal(t, StageReview, outcome.Stage)
		for _, stage := range []string{StageHardship, StageHouseholdExpenses, StageOtherExpenses} {
			assert.True(t, j.data.Bag(stage).Skipped(), stage)
		}
	})

	t.Run("hardship walks every expense stage", func(t *testing.T) {
		j := newJourney(t)
		j.startCase(MadeByDefendant, 1)
		j.saveYourDetails()
		j.savePlea(0, PleaGuilty)

		outcome := j.saveEmployedFinances("yes")
		require.Equal(t, StageHardship, outcome.Stage)

		outcome = j.save(StageHardship, map[string]string{
			"hardship_details": "I would be unable to pay rent",
		})
		require.Equal(t, StageHouseholdExpenses, outcome.Stage)

		outcome = j.save(StageHouseholdExpenses, map[string]string{
			"household_accommodation": "650",
			"household_utility_bills": "120",
			"household_insurance":     "40",
			"household_council_tax":   "110",
			"other_bill_payers":       "no",
		})
		require.Equal(t, StageOtherExpenses, outcome.Stage)

		outcome = j.save(StageOtherExpenses, map[string]string{
			"other_tv_subscription": "15",
			"other_travel_expenses": "80",
			"other_telephone":       "25",
			"other_loan_repayments": "200",
		})
		assert.Equal(t, StageReview, outcome.Stage)
	})

	t.Run("the first finance screen alone does not finish the stage", func(t *testing.T) {
		j := newJourney(t)
		j.startCase(MadeByDefendant, 1)
		j.saveYourDetails()
		j.savePlea(0, PleaGuilty)

		outcome := j.save(StageYourFinances, map[string]string{"you_are": "Employed"})
		assert.Equal(t, contracts.OutcomeRender, outcome.Kind)
		assert.False(t, j.data.Bag(StageYourFinances).Complete())
		assert.Equal(t, "Employed", j.data.Bag(StageYourFinances)["you_are"])
	})
}

func TestJourneySubmission(t *testing.T) {
	completeToReview := func(t *testing.T) *journey {
		t.Helper()
		j := newJourney(t)
		j.startCase(MadeByDefendant, 1)
		j.saveYourDetails()
		j.savePlea(0, PleaGuilty)
		outcome := j.saveEmployedFinances("no")
		require.Equal(t, StageReview, outcome.Stage)
		return j
	}

	t.Run("accepting the declaration submits the plea", func(t *testing.T) {
		j := completeToReview(t)

		outcome := j.save(StageReview, map[string]string{"understand": "yes"})
		assert.Equal(t, StageComplete, outcome.Stage)

		require.Len(t, j.submitted, 1)
		sub := j.submitted[0]
		assert.Equal(t, "06/AA/1234567/20", sub.URN)
		assert.Equal(t, "B01", sub.CourtCode)
		assert.Equal(t, court.NoticeCharge, sub.NoticeType)
		require.Len(t, sub.Charges, 1)
		assert.Equal(t, PleaGuilty, sub.Charges[0].Plea)
		assert.NotEmpty(t, sub.SubmissionID)

		require.Len(t, j.messages, 1)
		assert.Equal(t, contracts.SeveritySuccess, j.messages[0].Severity)

		outcome = j.load(StageComplete)
		assert.Equal(t, contracts.OutcomeRender, outcome.Kind)
	})

	t.Run("rejecting the declaration blocks submission", func(t *testing.T) {
		j := completeToReview(t)

		outcome := j.save(StageReview, map[string]string{"understand": "no"})
		assert.Equal(t, contracts.OutcomeRender, outcome.Kind)
		assert.Empty(t, j.submitted)
	})

	t.Run("a failed submission keeps the citizen on review to retry", func(t *testing.T) {
		j := completeToReview(t)
		j.submitErr = errors.New("broker unavailable")

		outcome := j.save(StageReview, map[string]string{"understand": "yes"})
		assert.Equal(t, contracts.OutcomeRender, outcome.Kind)
		assert.False(t, j.data.Bag(StageReview).Complete())
		require.Len(t, j.messages, 1)
		assert.Equal(t, contracts.SeverityError, j.messages[0].Severity)

		// The confirmation stays out of reach until submission succeeds.
		gate := j.load(StageComplete)
		assert.Equal(t, contracts.OutcomeHome, gate.Kind)

		j.submitErr = nil
		outcome = j.save(StageReview, map[string]string{"understand": "yes"})
		assert.Equal(t, StageComplete, outcome.Stage)
		assert.Len(t, j.submitted, 1)
	})
}
