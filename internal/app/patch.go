package app

import "github.com/pscheid92/applied/internal/domain"

// patch is a validated EditApplicationRequest. fields lists the supplied
// field names in a fixed order for the edit event's note.
type patch struct {
	companyName    *string
	roleTitle      *string
	appliedAt      *domain.Date
	setJobURL      bool
	jobURL         *string
	setDescription bool
	jobDescription *string
	fields         []string
}

func parsePatch(req EditApplicationRequest) (patch, error) {
	var p patch

	if req.CompanyName != nil {
		v, err := requiredText("company_name", *req.CompanyName, domain.MaxCompanyNameLength)
		if err != nil {
			return patch{}, err
		}
		p.companyName = &v
		p.fields = append(p.fields, "company_name")
	}
	if req.RoleTitle != nil {
		v, err := requiredText("role_title", *req.RoleTitle, domain.MaxRoleTitleLength)
		if err != nil {
			return patch{}, err
		}
		p.roleTitle = &v
		p.fields = append(p.fields, "role_title")
	}
	if req.AppliedAt != nil {
		d, err := domain.ParseDate(*req.AppliedAt)
		if err != nil {
			return patch{}, err
		}
		p.appliedAt = &d
		p.fields = append(p.fields, "applied_at")
	}
	if req.JobURL != nil {
		v, err := optionalText("job_url", req.JobURL, domain.MaxJobURLLength, true)
		if err != nil {
			return patch{}, err
		}
		p.setJobURL, p.jobURL = true, v
		p.fields = append(p.fields, "job_url")
	}
	if req.JobDescription != nil {
		v, err := optionalText("job_description", req.JobDescription, domain.MaxJobDescriptionLength, false)
		if err != nil {
			return patch{}, err
		}
		p.setDescription, p.jobDescription = true, v
		p.fields = append(p.fields, "job_description")
	}

	if len(p.fields) == 0 {
		return patch{}, domain.NewValidationError("", "no fields to update")
	}
	return p, nil
}

func (p patch) apply(app domain.Application) domain.Application {
	if p.companyName != nil {
		app.CompanyName = *p.companyName
	}
	if p.roleTitle != nil {
		app.RoleTitle = *p.roleTitle
	}
	if p.appliedAt != nil {
		app.AppliedAt = *p.appliedAt
	}
	if p.setJobURL {
		app.JobURL = p.jobURL
	}
	if p.setDescription {
		app.JobDescription = p.jobDescription
	}
	return app
}
