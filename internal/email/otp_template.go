package email

import "fmt"

// OTPTemplate arma el cuerpo HTML del correo con el código de verificación.
func OTPTemplate(code, toEmail, appName string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
  <body style="font-family: Arial, sans-serif; background-color: #f4f4f4; padding: 24px;">
    <div style="max-width: 480px; margin: 0 auto; background: #ffffff; border-radius: 8px; padding: 32px;">
      <h2 style="margin-top: 0; color: #333333;">%s</h2>
      <p style="color: #555555;">Hi %s,</p>
      <p style="color: #555555;">Use the code below to continue. It expires in 5 minutes.</p>
      <p style="font-size: 32px; letter-spacing: 8px; font-weight: bold; text-align: center; color: #222222;">%s</p>
      <p style="color: #999999; font-size: 12px;">If you did not request this code, you can safely ignore this email.</p>
    </div>
  </body>
</html>`, appName, toEmail, code)
}
