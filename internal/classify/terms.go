package classify

// Default term lists. Each entry is a regular expression fragment; the
// classifier ORs them into one positive and one negative pattern. The lists
// are data so config can extend them with new languages or terms without
// touching the decision rule.

// DefaultPositiveTerms match early-career language across the languages the
// sources return postings in (EN, FR, DE, ES, IT, NL).
var DefaultPositiveTerms = []string{
	// English
	`graduate`,
	`junior`,
	`entry[ -]?level`,
	`trainee`,
	`intern(ship)?`,
	`apprentice(ship)?`,
	`early[ -]career`,
	`new[ -]grad`,
	`recent graduate`,
	`working student`,
	// French
	`jeunes? dipl[oô]m[eé]`,
	`d[eé]butant`,
	`stagiaire`,
	`alternance`,
	`apprenti`,
	// German
	`absolvent`,
	`berufseinsteiger`,
	`praktikum`,
	`praktikant`,
	`werkstudent`,
	`auszubildende`,
	`einstiegsposition`,
	// Spanish
	`reci[eé]n titulado`,
	`reci[eé]n graduado`,
	`sin experiencia`,
	`becario`,
	`pr[aá]cticas`,
	// Italian
	`neolaureat[oi]`,
	`tirocin(io|ante)`,
	`stage curriculare`,
	`apprendistato`,
	// Dutch
	`starter(sfunctie)?`,
	`afgestudeerde`,
	`stagiair`,
	`traineeship`,
	`werkstudent`,
}

// DefaultNegativeTerms match seniority markers. Years-of-experience patterns
// matter most: many senior roles omit "senior" from the title and state the
// requirement in the body instead.
var DefaultNegativeTerms = []string{
	// English
	`senior`,
	`\bsr\.?\s`,
	`staff engineer`,
	`principal`,
	`\blead\b`,
	`director`,
	`head of`,
	`\bvp\b`,
	`vice president`,
	`chief\b`,
	`architect`,
	`[5-9]\+?\s*(years?|yrs?)`,
	`1[0-9]\+?\s*(years?|yrs?)`,
	`[5-9]\+?\s*(years?|yrs?)['’]? experience`,
	`extensive experience`,
	`proven track record`,
	`expert[ -]level`,
	// French
	`confirm[eé]`,
	`exp[eé]riment[eé]`,
	`[5-9]\s*ans d['’]exp[eé]rience`,
	// German
	`mehrj[aä]hrige erfahrung`,
	`langj[aä]hrige erfahrung`,
	`f[uü]hrungserfahrung`,
	`[5-9]\+?\s*jahre`,
	// Spanish
	`[5-9]\+?\s*a[nñ]os de experiencia`,
	`amplia experiencia`,
	// Italian
	`esperienza pluriennale`,
	`[5-9]\+?\s*anni di esperienza`,
	// Dutch
	`ruime ervaring`,
	`[5-9]\+?\s*jaar ervaring`,
}
