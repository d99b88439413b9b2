package services

import (
	"fmt"
	"io"
	"strings"
	"time"

	"networked/models"

	"github.com/go-pdf/fpdf"
	"github.com/pkg/errors"
)

const cvMargin = 50.0

// CVFileName is the attachment name offered for the user's CV.
func CVFileName(u *models.User) string {
	name := strings.ReplaceAll(u.FirstName+"_"+u.LastName, " ", "_")
	return name + "_CV.pdf"
}

type cvWriter struct {
	pdf   *fpdf.Fpdf
	tr    func(string) string
	width float64
}

func (w *cvWriter) text(style string, size float64, align, s string) {
	w.pdf.SetFont("Helvetica", style, size)
	w.pdf.MultiCell(0, size*1.3, w.tr(s), "", align, false)
}

func (w *cvWriter) section(title string) {
	w.text("B", 14, "L", title)
	y := w.pdf.GetY()
	w.pdf.Line(cvMargin, y, cvMargin+w.width, y)
	w.pdf.Ln(6)
}

func monthYear(t time.Time) string {
	return t.Format("Jan 2006")
}

// WriteCV renders the user's profile as a PDF document.
func WriteCV(out io.Writer, u *models.User) error {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(cvMargin, cvMargin, cvMargin)
	pdf.SetAutoPageBreak(true, cvMargin)
	pdf.SetTitle(u.FullName()+" CV", true)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	w := &cvWriter{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor(""), width: pageW - 2*cvMargin}

	w.text("B", 24, "C", u.FullName())
	if u.Headline != "" {
		w.text("", 14, "C", u.Headline)
	}
	pdf.Ln(10)

	var contact []string
	for _, v := range []string{u.Email, u.Phone} {
		if v != "" {
			contact = append(contact, v)
		}
	}
	if u.City != "" && u.Country != "" {
		contact = append(contact, u.City+", "+u.Country)
	}
	w.text("", 10, "C", strings.Join(contact, " | "))

	var links []string
	if u.LinkedIn != "" {
		links = append(links, "LinkedIn: "+u.LinkedIn)
	}
	if u.GitHub != "" {
		links = append(links, "GitHub: "+u.GitHub)
	}
	if u.Website != "" {
		links = append(links, "Website: "+u.Website)
	}
	if len(links) > 0 {
		pdf.Ln(4)
		w.text("", 10, "C", strings.Join(links, " | "))
	}
	pdf.Ln(12)

	if u.Bio != "" {
		w.section("Summary")
		w.text("", 10, "L", u.Bio)
		pdf.Ln(12)
	}

	if len(u.Experiences) > 0 {
		w.section("Experience")
		for _, exp := range u.Experiences {
			w.text("B", 11, "L", exp.Position)
			w.text("", 10, "L", fmt.Sprintf("%s | %s", exp.Company, exp.Type))
			end := "Present"
			if !exp.Current && exp.EndDate != nil {
				end = monthYear(*exp.EndDate)
			}
			w.text("", 10, "L", monthYear(exp.StartDate)+" - "+end)
			if exp.Description != "" {
				pdf.Ln(3)
				w.text("", 10, "L", exp.Description)
			}
			if len(exp.Technologies) > 0 {
				w.text("", 10, "L", "Technologies: "+strings.Join(exp.Technologies, ", "))
			}
			pdf.Ln(6)
		}
		pdf.Ln(6)
	}

	if len(u.Education) > 0 {
		w.section("Education")
		for _, edu := range u.Education {
			w.text("B", 11, "L", edu.Degree)
			line := edu.Institution
			if edu.Field != "" {
				line += " - " + edu.Field
			}
			w.text("", 10, "L", line)
			if edu.StartDate != nil {
				end := "Present"
				if edu.EndDate != nil {
					end = monthYear(*edu.EndDate)
				}
				w.text("", 10, "L", monthYear(*edu.StartDate)+" - "+end)
			}
			if edu.Description != "" {
				pdf.Ln(3)
				w.text("", 10, "L", edu.Description)
			}
			pdf.Ln(6)
		}
		pdf.Ln(6)
	}

	if len(u.Skills) > 0 {
		w.section("Skills")
		for _, sk := range u.Skills {
			w.text("B", 10, "L", fmt.Sprintf("%s - %s (%s)", sk.Title, sk.Technology, sk.Level))
			if sk.Description != "" {
				w.text("", 10, "L", sk.Description)
			}
			pdf.Ln(3)
		}
		pdf.Ln(6)
	}

	if len(u.Projects) > 0 {
		w.section("Projects")
		for _, p := range u.Projects {
			w.text("B", 11, "L", p.Title)
			if len(p.Technologies) > 0 {
				w.text("", 10, "L", "Technologies: "+strings.Join(p.Technologies, ", "))
			}
			if p.Description != "" {
				w.text("", 10, "L", p.Description)
			}
			if p.Link != "" {
				w.text("", 10, "L", "Link: "+p.Link)
			}
			pdf.Ln(6)
		}
	}

	if err := pdf.Output(out); err != nil {
		return errors.Wrap(err, "render cv")
	}
	return nil
}
