package plea

import (
	"context"
	"fmt"

	"github.com/opencourts/pleaflow-go/contracts"
	"github.com/opencourts/pleaflow-go/court"
	"github.com/opencourts/pleaflow-go/forms"
	"github.com/opencourts/pleaflow-go/notify"
)

// NewGraph builds the plea journey stage graph. The register resolves URNs
// to courts; the submitter receives the assembled plea when the review stage
// commits.
func NewGraph(register *court.Register, submitter notify.Submitter) *forms.Graph {
	g := forms.NewGraph()

	g.MustRegister(&forms.StageDef{
		Name: StageURN,
		Form: urnForm(register),
		Branch: func(b *forms.Branching, clean map[string]any, all contracts.JourneyData) {
			urn, _ := clean["urn"].(string)
			c, err := register.Match(urn)
			if err != nil {
				// Validation already vouched for the URN; nothing to route.
				return
			}
			journey := all.Bag(contracts.JourneyBag)
			journey["court_code"] = c.Code
			journey["court_name"] = c.Name

			// Courts that accept a single notice type answer the question
			// for the citizen and drop the stage from their journey.
			if fixed := c.FixedNoticeType(); fixed != "" {
				all.Bag(StageNoticeType)["notice_type"] = fixed
				b.Skip(StageNoticeType)
			}
		},
	})

	g.MustRegister(&forms.StageDef{
		Name:         StageAuth,
		Dependencies: []string{StageURN},
		Form:         authForm(),
		Branch: func(b *forms.Branching, clean map[string]any, all contracts.JourneyData) {
			if all.Bag(StageNoticeType).Skipped() {
				b.Next(StageCase)
			}
		},
	})

	g.MustRegister(&forms.StageDef{
		Name:         StageNoticeType,
		Dependencies: []string{StageAuth},
		Form:         noticeTypeForm(),
	})

	g.MustRegister(&forms.StageDef{
		Name:         StageCase,
		Dependencies: []string{StageAuth, StageNoticeType},
		Form:         caseForm(),
		Defaults: func(all contracts.JourneyData) map[string]any {
			return map[string]any{
				"urn": all.Bag(StageURN)["urn"],
			}
		},
		Branch: func(b *forms.Branching, clean map[string]any, all contracts.JourneyData) {
			if madeBy, _ := clean["plea_made_by"].(string); madeBy == MadeByCompany {
				b.Next(StageCompanyDetails, StageYourDetails)
			} else {
				b.Next(StageYourDetails, StageCompanyDetails)
			}
		},
	})

	g.MustRegister(&forms.StageDef{
		Name:         StageYourDetails,
		Dependencies: []string{StageCase},
		Form:         yourDetailsForm(),
		Branch: func(b *forms.Branching, clean map[string]any, all contracts.JourneyData) {
			b.NextIndex(StagePlea, 0)
		},
	})

	g.MustRegister(&forms.StageDef{
		Name:         StageCompanyDetails,
		Dependencies: []string{StageCase},
		Form:         companyDetailsForm(),
		Branch: func(b *forms.Branching, clean map[string]any, all contracts.JourneyData) {
			b.NextIndex(StagePlea, 0)
		},
	})

	g.MustRegister(&forms.StageDef{
		Name:         StagePlea,
		Dependencies: []string{StageCase, StageYourDetails, StageCompanyDetails},
		Repeat: &forms.RepeatOptions{
			CountStage: StageCase,
			CountField: "number_of_charges",
			ListKey:    ListKeyPleas,
			ItemForm:   pleaItemForm(),
		},
		Branch: branchAfterPleas,
	})

	g.MustRegister(&forms.StageDef{
		Name:         StageDefence,
		Dependencies: []string{StagePlea},
		Form:         defenceForm(),
		Branch: func(b *forms.Branching, clean map[string]any, all contracts.JourneyData) {
			if madeByCompany(all) {
				if all.Bag(StageCompanyFinances).Skipped() {
					b.Next(StageReview)
				} else {
					b.Next(StageCompanyFinances)
				}
				return
			}
			if all.Bag(StageYourFinances).Skipped() {
				b.Next(StageReview)
			}
		},
	})

	g.MustRegister(&forms.StageDef{
		Name:         StageYourFinances,
		Dependencies: []string{StagePlea},
		Form:         yourFinancesForm(),
		Split:        &forms.SplitOptions{Trigger: "split_form_first_step"},
		Branch: func(b *forms.Branching, clean map[string]any, all contracts.JourneyData) {
			if anyHardship(clean) {
				b.Next(StageHardship)
			} else {
				b.Next(StageReview, expenseStages...)
			}
		},
	})

	g.MustRegister(&forms.StageDef{
		Name:         StageHardship,
		Dependencies: []string{StageYourFinances},
		Form:         hardshipForm(),
	})

	g.MustRegister(&forms.StageDef{
		Name:         StageHouseholdExpenses,
		Dependencies: []string{StageHardship},
		Form:         householdExpensesForm(),
	})

	g.MustRegister(&forms.StageDef{
		Name:         StageOtherExpenses,
		Dependencies: []string{StageHouseholdExpenses},
		Form:         otherExpensesForm(),
		Branch: func(b *forms.Branching, clean map[string]any, all contracts.JourneyData) {
			b.Next(StageReview)
		},
	})

	g.MustRegister(&forms.StageDef{
		Name:         StageCompanyFinances,
		Dependencies: []string{StageCompanyDetails, StagePlea},
		Form:         companyFinancesForm(),
	})

	g.MustRegister(&forms.StageDef{
		Name: StageReview,
		Dependencies: []string{
			StageCase, StageYourDetails, StageCompanyDetails, StagePlea,
			StageDefence, StageYourFinances, StageHardship,
			StageHouseholdExpenses, StageOtherExpenses, StageCompanyFinances,
		},
		Form:   reviewForm(),
		Commit: commitSubmission(submitter),
	})

	g.MustRegister(&forms.StageDef{
		Name:         StageComplete,
		Dependencies: []string{StageReview},
	})

	return g
}

// branchAfterPleas is the financial-status branch: once the last charge's
// plea is saved, the mix of guilty and not-guilty answers together with who
// is pleading decides which of the defence and finance stages remain.
func branchAfterPleas(b *forms.Branching, clean map[string]any, all contracts.JourneyData) {
	total, guilty := countPleas(all)

	if madeByCompany(all) {
		b.Skip(personalFinanceStages...)
		switch {
		case guilty == total:
			b.Next(StageReview, StageDefence, StageCompanyFinances)
		case guilty == 0:
			b.Next(StageDefence, StageCompanyFinances)
		default:
			b.Next(StageDefence)
		}
		return
	}

	b.Skip(StageCompanyFinances)
	switch {
	case guilty == total:
		b.Next(StageYourFinances, StageDefence)
	case guilty == 0:
		b.Next(StageDefence, personalFinanceStages...)
	default:
		b.Next(StageDefence)
	}
}

// commitSubmission assembles the plea from the journey data and hands it to
// the submitter. A submitter failure keeps the citizen on the review stage
// with a retryable error message.
func commitSubmission(submitter notify.Submitter) forms.CommitFunc {
	return func(ctx context.Context, clean map[string]any, all contracts.JourneyData, msgs *forms.Messages) error {
		urn, _ := all.Bag(StageURN)["urn"].(string)
		journey := all.Bag(contracts.JourneyBag)
		courtCode, _ := journey["court_code"].(string)
		noticeType, _ := all.Bag(StageNoticeType)["notice_type"].(string)

		var charges []notify.Charge
		for _, item := range all.Bag(StagePlea).ItemList(ListKeyPleas) {
			plea, _ := item["guilty"].(string)
			extra, _ := item["guilty_extra"].(string)
			why, _ := item["not_guilty_because"].(string)
			lang, _ := item["interpreter_language"].(string)
			charges = append(charges, notify.Charge{
				Plea:                plea,
				GuiltyExtra:         extra,
				NotGuiltyWhy:        why,
				InterpreterLanguage: lang,
			})
		}

		stages, err := all.Copy()
		if err != nil {
			return err
		}
		sub := notify.NewSubmission(urn, courtCode, noticeType, charges, stages)

		if err := submitter.Submit(ctx, sub); err != nil {
			msgs.Add(contracts.SeverityError, "Your plea could not be submitted. Please try again.")
			return fmt.Errorf("%w: %v", contracts.ErrSubmissionFailed, err)
		}

		msgs.Add(contracts.SeveritySuccess, "Your plea has been sent to the court.")
		return nil
	}
}
