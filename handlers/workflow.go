package handlers

import (
	"context"
	"log"
	"sort"

	"go.mongodb.org/mongo-driver/bson"

	"erpdocs/models"
)

// pickWorkflow selects the workflow applying to a classification: an exact
// category+department match wins, otherwise the ALL/ALL global default,
// otherwise none.
func pickWorkflow(workflows []models.ApprovalWorkflow, category, department string) *models.ApprovalWorkflow {
	var global *models.ApprovalWorkflow
	for i := range workflows {
		wf := &workflows[i]
		if wf.Matches(category, department) {
			return wf
		}
		if global == nil && wf.IsGlobalDefault() {
			global = wf
		}
	}
	return global
}

// statusForWorkflows decides the initial status of a document given the set
// of active workflows. No workflows at all, or none applying to this
// classification, means approved: absence of configured review must never
// block document visibility.
func statusForWorkflows(workflows []models.ApprovalWorkflow, category, department string) (string, *models.ApprovalWorkflow) {
	if len(workflows) == 0 {
		return models.DocStatusApproved, nil
	}
	wf := pickWorkflow(workflows, category, department)
	if wf == nil {
		return models.DocStatusApproved, nil
	}
	return models.DocStatusPendingReview, wf
}

// statusAfterWorkflowLookup folds a lookup result into the status decision. A
// non-nil lookup error fails open to approved so a broken workflow store never
// blocks uploads; the fallback is logged at warning level so deployments can
// alert on it.
func statusAfterWorkflowLookup(workflows []models.ApprovalWorkflow, err error, category, department string) (string, *models.ApprovalWorkflow) {
	if err != nil {
		log.Printf("WARNING: workflow lookup failed for category=%s department=%s, failing open to approved: %v",
			category, department, err)
		return models.DocStatusApproved, nil
	}
	return statusForWorkflows(workflows, category, department)
}

func loadActiveWorkflows(ctx context.Context) ([]models.ApprovalWorkflow, error) {
	cursor, err := workflowCollection.Find(ctx, bson.M{"isActive": true})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var workflows []models.ApprovalWorkflow
	if err = cursor.All(ctx, &workflows); err != nil {
		return nil, err
	}
	return workflows, nil
}

// determineDocumentStatus loads the active workflow configurations and decides
// the initial status. Returns the matched workflow so the caller can
// synthesize the approval chain.
func determineDocumentStatus(ctx context.Context, category, department string) (string, *models.ApprovalWorkflow) {
	workflows, err := loadActiveWorkflows(ctx)
	return statusAfterWorkflowLookup(workflows, err, category, department)
}

// buildApprovalChain synthesizes the document's chain from a workflow's level
// templates, ordered ascending so the lowest level is the first to resolve.
func buildApprovalChain(wf *models.ApprovalWorkflow) []models.ApprovalStep {
	if wf == nil || len(wf.Levels) == 0 {
		return nil
	}
	steps := make([]models.ApprovalStep, 0, len(wf.Levels))
	for _, lvl := range wf.Levels {
		steps = append(steps, models.ApprovalStep{
			Level:      lvl.Level,
			Approver:   lvl.Approver,
			Department: lvl.Department,
			Status:     models.StepStatusPending,
		})
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].Level < steps[j].Level })
	return steps
}

// filterApprovers keeps active users at or above the minimum role level.
func filterApprovers(users []models.User, minRoleLevel int) []models.User {
	out := make([]models.User, 0, len(users))
	for _, u := range users {
		if u.IsActive && u.RoleLevel >= minRoleLevel {
			out = append(out, u)
		}
	}
	return out
}

// ResolveApprovers finds the users authorized to act on a chain step that has
// no statically bound approver: members of the step's department at or above
// minRoleLevel. One department query, role filter applied in Go, one
// deterministic result.
func ResolveApprovers(ctx context.Context, department string, minRoleLevel int) ([]models.User, error) {
	cursor, err := userCollection.Find(ctx, bson.M{"department": department, "isActive": true})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err = cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return filterApprovers(users, minRoleLevel), nil
}

// superAdmins returns every platform super-administrator. Used to escalate
// when a step's department yields zero candidates rather than stalling
// silently.
func superAdmins(ctx context.Context) []models.User {
	cursor, err := userCollection.Find(ctx, bson.M{"roleLevel": bson.M{"$gte": models.RoleLevelSuperAdmin}, "isActive": true})
	if err != nil {
		log.Printf("Failed to load super administrators: %v", err)
		return nil
	}
	defer cursor.Close(ctx)

	var admins []models.User
	if err = cursor.All(ctx, &admins); err != nil {
		log.Printf("Failed to decode super administrators: %v", err)
		return nil
	}
	return admins
}

// stepApprovers resolves the recipient set for one chain step. A statically
// bound approver wins; otherwise the step's department is resolved
// dynamically; an empty department escalates to the super-admins.
func stepApprovers(ctx context.Context, step *models.ApprovalStep) ([]models.User, bool) {
	if step.Approver != nil {
		var u models.User
		if err := userCollection.FindOne(ctx, bson.M{"_id": *step.Approver}).Decode(&u); err == nil {
			return []models.User{u}, false
		}
		log.Printf("Bound approver %s for level %d not found, escalating", step.Approver.Hex(), step.Level)
		return superAdmins(ctx), true
	}

	approvers, err := ResolveApprovers(ctx, step.Department, models.RoleLevelApprover)
	if err != nil {
		log.Printf("Approver resolution failed for department %s: %v", step.Department, err)
	}
	if len(approvers) == 0 {
		return superAdmins(ctx), true
	}
	return approvers, false
}

// notifyStepApprovers tells the current step's reviewers a document awaits
// them, escalating to super-admins when nobody can be resolved.
func notifyStepApprovers(ctx context.Context, doc *models.Document, ntype string) {
	step := doc.CurrentStep()
	if step == nil {
		return
	}

	approvers, escalated := stepApprovers(ctx, step)
	if escalated {
		ntype = models.NotifyApprovalEscalated
	}

	title := "Document approval required"
	message := "Document " + doc.Reference + " (" + doc.Title + ") is awaiting your review"
	if ntype == models.NotifyProjectReadyForApproval {
		title = "Project ready for approval"
		message = "All required documents are submitted; " + doc.Reference + " completes the checklist"
	} else if ntype == models.NotifyApprovalEscalated {
		title = "Approval escalated"
		message = "No approvers could be resolved for document " + doc.Reference
	}

	notifyUsers(ctx, approvers, ntype, title, message,
		"/documents/"+doc.ID.Hex(),
		bson.M{"documentId": doc.ID.Hex(), "reference": doc.Reference, "level": step.Level})
}
